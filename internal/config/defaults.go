package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Index.Name == "" {
		cfg.Index.Name = "articles"
	}
	if cfg.Storage.InMemory {
		cfg.Storage.DatabasePath = ":memory:"
		cfg.Storage.BleveIndexPath = ""
	} else {
		if cfg.Storage.DatabasePath == "" {
			cfg.Storage.DatabasePath = "/usr/local/var/articles/data/db/articles.db"
		}
		if cfg.Storage.BleveIndexPath == "" {
			cfg.Storage.BleveIndexPath = "/usr/local/var/articles/data/indices"
		}
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.TitleLimit == 0 {
		cfg.Search.TitleLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Scan.PageSize == 0 {
		cfg.Scan.PageSize = 5
	}
	if cfg.Scan.CursorTimeout == 0 {
		cfg.Scan.CursorTimeout = time.Minute
	}
}
