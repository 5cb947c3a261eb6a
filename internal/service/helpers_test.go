package service

import "invexis/pkg/pagination"

func paramsFor(page, limit int) pagination.Params {
	return pagination.New(page, limit, "")
}
