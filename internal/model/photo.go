package model

import "time"

// Album is a photo album as exposed over the API. AlbumType is user, smart
// or shared.
type Album struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	AlbumType  string     `json:"albumType"`
	PhotoCount int        `json:"photoCount"`
	VideoCount int        `json:"videoCount"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

// Photo is a library item as exposed over the API.
type Photo struct {
	ID               string     `json:"id"`
	AlbumID          string     `json:"albumId"`
	MediaType        string     `json:"mediaType"`
	CreationDate     time.Time  `json:"creationDate"`
	ModificationDate *time.Time `json:"modificationDate,omitempty"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	IsFavorite       bool       `json:"isFavorite"`
	IsHidden         bool       `json:"isHidden"`
	Filename         string     `json:"filename,omitempty"`
	FileSize         int64      `json:"fileSize,omitempty"`
}

// PhotoPage is one page of an album listing.
type PhotoPage struct {
	Photos []Photo `json:"photos"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Sort   string  `json:"sort"`
}
