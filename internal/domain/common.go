package domain

import "time"

// Audit carries the who/when stamps written on every mutation.
type Audit struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt *time.Time
	UpdatedBy string
}

// Asset is a stored image or video reference.
type Asset struct {
	URL      string
	PublicID string
}

// RawAsset is an upload payload that has not reached asset storage yet.
type RawAsset struct {
	FileName    string
	ContentType string
	Data        []byte
}

// AssetInput is one entry of an incoming image list: either an existing asset
// identified by PublicID, or a new upload carried as a data URL.
type AssetInput struct {
	PublicID string
	URL      string
	DataURL  string
}

// SortField is one component of an orderBy expression.
type SortField struct {
	Field string
	Desc  bool
}

// ListQuery holds the shared keyword, paging and sort inputs of admin listings.
type ListQuery struct {
	Keyword    string
	PageNumber int
	PageSize   int
	IsExport   bool
	Sort       []SortField
}

// Skip returns the number of rows to skip for the requested page.
func (q ListQuery) Skip() int64 {
	if q.IsExport || q.PageNumber <= 1 {
		return 0
	}
	return int64(q.PageNumber-1) * int64(q.PageSize)
}

// Limit returns the page size, or zero (no limit) for exports.
func (q ListQuery) Limit() int64 {
	if q.IsExport || q.PageSize <= 0 {
		return 0
	}
	return int64(q.PageSize)
}

// Page couples a slice of rows with the unpaged total.
type Page[T any] struct {
	Items []T
	Total int64
}
