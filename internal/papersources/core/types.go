// Package core provides a client for the CORE v3 open-access aggregator.
//
// CORE requires an API key passed as a query parameter. It does not track
// citations, so papers from this source carry a nil citation count.
//
// API Documentation: https://api.core.ac.uk/docs/v3
package core

import "encoding/json"

// SearchResponse is the envelope returned by /search/works.
type SearchResponse struct {
	TotalHits int    `json:"totalHits"`
	Limit     int    `json:"limit"`
	Results   []Work `json:"results"`
}

// Work is a single aggregated output.
type Work struct {
	ID            json.Number `json:"id"`
	Title         string      `json:"title"`
	Abstract      string      `json:"abstract"`
	Authors       []Author    `json:"authors"`
	YearPublished int         `json:"yearPublished"`
	Publisher     string      `json:"publisher"`
	DownloadURL   string      `json:"downloadUrl"`
	DOI           string      `json:"doi"`
	ArXivID       string      `json:"arxivId"`
	Subjects      []string    `json:"subjects"`
	FieldOfStudy  string      `json:"fieldOfStudy"`
}

// Author is a work contributor.
type Author struct {
	Name string `json:"name"`
}
