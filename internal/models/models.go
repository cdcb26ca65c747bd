package models

import "github.com/goccy/go-json"

type FrameStats struct {
	Rows    int          `json:"rows"`
	Columns []ColumnStat `json:"columns"`
}

type ColumnStat struct {
	Name      string `json:"name"`
	DataType  string `json:"dtype"`
	Length    int    `json:"length"`
	NullCount int    `json:"null_count"`
	Distinct  int    `json:"distinct,omitempty"`
	Flags     string `json:"flags"`
}

type SchemaColumn struct {
	Name     string          `json:"name"`
	DataType json.RawMessage `json:"datatype"`
	Flags    string          `json:"bit_settings"`
}

type SchemaResponse struct {
	Columns     []SchemaColumn `json:"columns"`
	Rows        int            `json:"rows"`
	Fingerprint string         `json:"fingerprint"`
}

type ColumnPage struct {
	Name   string          `json:"name"`
	Values json.RawMessage `json:"values"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type ValidateResponse struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
