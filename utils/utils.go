// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// IsBlank reports whether s is empty after trimming whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ProvinceOrNational maps an empty province to the national sentinel
func ProvinceOrNational(provinceID string) string {
	if IsBlank(provinceID) {
		return NationalProvinceID
	}
	return provinceID
}
