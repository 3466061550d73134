package search

import (
	"fmt"

	"github.com/hyperjump/articles/internal/config"
)

// ProcessPage validates offset and applies the configured default and cap to
// limit. With no config, a non-positive limit is rejected and none is capped.
func ProcessPage(cfg *config.SearchConfig, offset, limit int) (int, int, error) {
	if offset < 0 {
		return 0, 0, fmt.Errorf("offset cannot be negative")
	}
	if limit <= 0 && cfg != nil {
		limit = cfg.DefaultLimit
	}
	if limit <= 0 {
		return 0, 0, fmt.Errorf("limit must be positive")
	}
	if cfg != nil && cfg.MaxLimit > 0 && limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return offset, limit, nil
}
