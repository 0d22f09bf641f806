package config

import (
	_ "github.com/rprusd/thumbhub/internal/assetkind/light"
	_ "github.com/rprusd/thumbhub/internal/assetkind/material"
)
