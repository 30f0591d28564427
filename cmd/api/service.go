package main

import (
	"github.com/UnendingLoop/WatermarkIt/internal/transport"
)

// EditorAPIService is what the HTTP layer needs from the editor service.
type EditorAPIService interface {
	transport.EditorService
}
