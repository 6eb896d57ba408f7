package shaders

import (
	_ "embed"
)

//go:embed orbs.wgsl
var OrbsWGSL string

//go:embed blit.wgsl
var BlitWGSL string
