package state

import (
	"time"

	"graphbridge/internal/database/graph"
)

type Page int

const (
	PageMenu    Page = iota
	PageChat         // "Ask the Graph"
	PageSchema       // "Graph Schema"
	PageStats        // "Graph Statistics"
	PageConsole      // "Session Log"
)

// Exchange is one question and its outcome.
type Exchange struct {
	Question string
	Query    string
	Answer   string
	Rows     int
	Err      error
	Took     time.Duration
	At       time.Time
}

// AppState holds what the chat session has learned about the graph.
type AppState struct {
	Schema     graph.GraphSchema
	SchemaErr  error
	Stats      graph.GraphStats
	StatsErr   error
	LastUpdate time.Time

	Exchanges []Exchange
	// Pending is the question currently being answered.
	Pending string

	// LatencyHistory holds answer times in seconds.
	LatencyHistory []float64
	ConsoleLogs    []string
	CurrentPage    Page
}

// Busy reports whether a question is in flight.
func (s AppState) Busy() bool {
	return s.Pending != ""
}
