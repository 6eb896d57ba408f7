package orbfield

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gekko3d/orbfield/render"
	"github.com/gekko3d/orbfield/sim"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidColor  = errors.New("invalid color")
	ErrInvalidConfig = errors.New("invalid config")
)

// Color is a 0xRRGGBB sRGB color. In YAML it may be written as an integer,
// a "#rrggbb" / "#rgb" string or a CSS color name.
type Color uint32

// ParseColor accepts "#rrggbb", "#rgb", "0xrrggbb" and CSS color names.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if c, ok := colornames.Map[lower]; ok {
		return Color(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)), nil
	}

	hex := ""
	switch {
	case strings.HasPrefix(lower, "#"):
		hex = lower[1:]
	case strings.HasPrefix(lower, "0x"):
		hex = lower[2:]
	default:
		n, err := strconv.ParseUint(lower, 10, 32)
		if err != nil || n > 0xffffff {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		return Color(n), nil
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color(n), nil
}

func (c Color) String() string { return fmt.Sprintf("#%06x", uint32(c)) }

func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidColor, node.Line)
	}
	parsed, err := ParseColor(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (any, error) { return c.String(), nil }

type MaterialParams struct {
	Metalness          float32 `yaml:"metalness"`
	Roughness          float32 `yaml:"roughness"`
	Clearcoat          float32 `yaml:"clearcoat"`
	ClearcoatRoughness float32 `yaml:"clearcoatRoughness"`
	Transmission       float32 `yaml:"transmission"`
	IOR                float32 `yaml:"ior"`
}

// Config is the construction config of an OrbField. Every field is optional
// in a config file; missing ones keep their DefaultConfig value. The X and Y
// bounds are not configurable: they follow the visible world size.
type Config struct {
	Count       int     `yaml:"count"`
	Gravity     float32 `yaml:"gravity"`
	Friction    float32 `yaml:"friction"`
	WallBounce  float32 `yaml:"wallBounce"`
	MaxVelocity float32 `yaml:"maxVelocity"`
	MinSize     float32 `yaml:"minSize"`
	MaxSize     float32 `yaml:"maxSize"`
	Size0       float32 `yaml:"size0"`
	MaxZ        float32 `yaml:"maxZ"`

	Colors           []Color        `yaml:"colors"`
	AmbientColor     Color          `yaml:"ambientColor"`
	AmbientIntensity float32        `yaml:"ambientIntensity"`
	LightIntensity   float32        `yaml:"lightIntensity"`
	Material         MaterialParams `yaml:"materialParams"`

	FollowCursor bool `yaml:"followCursor"`
}

func DefaultConfig() Config {
	rc := render.DefaultConfig()
	p := rc.Physics
	m := rc.Material
	cfg := Config{
		Count:            p.Count,
		Gravity:          p.Gravity,
		Friction:         p.Friction,
		WallBounce:       p.WallBounce,
		MaxVelocity:      p.MaxVelocity,
		MinSize:          p.MinSize,
		MaxSize:          p.MaxSize,
		Size0:            p.Size0,
		MaxZ:             p.MaxZ,
		AmbientColor:     Color(rc.AmbientColor),
		AmbientIntensity: rc.AmbientIntensity,
		LightIntensity:   rc.LightIntensity,
		Material: MaterialParams{
			Metalness:          m.Metalness,
			Roughness:          m.Roughness,
			Clearcoat:          m.Clearcoat,
			ClearcoatRoughness: m.ClearcoatRoughness,
			Transmission:       m.Transmission,
			IOR:                m.IOR,
		},
		FollowCursor: p.FollowCursor,
	}
	for _, c := range rc.Colors {
		cfg.Colors = append(cfg.Colors, Color(c))
	}
	return cfg
}

// Validate rejects values no simulation can run with. A zero count and fewer
// than two colors are allowed; they degrade to an empty or untinted field.
func (c Config) Validate() error {
	switch {
	case c.Count < 0:
		return fmt.Errorf("%w: count %d is negative", ErrInvalidConfig, c.Count)
	case c.MinSize < 0 || c.MaxSize < 0 || c.Size0 < 0:
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	case c.MinSize > c.MaxSize:
		return fmt.Errorf("%w: minSize %g > maxSize %g", ErrInvalidConfig, c.MinSize, c.MaxSize)
	case c.MaxVelocity < 0:
		return fmt.Errorf("%w: maxVelocity %g is negative", ErrInvalidConfig, c.MaxVelocity)
	case c.MaxZ < 0:
		return fmt.Errorf("%w: maxZ %g is negative", ErrInvalidConfig, c.MaxZ)
	}
	return nil
}

// LoadConfig decodes a YAML file on top of DefaultConfig. Unknown keys are
// an error so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func MarshalConfig(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func hexes(colors []Color) []uint32 {
	out := make([]uint32, len(colors))
	for i, c := range colors {
		out[i] = uint32(c)
	}
	return out
}

// renderConfig maps the public config onto a mesh config. maxX and maxY are
// placeholders until the first resize publishes the world size.
func (c Config) renderConfig() render.Config {
	p := sim.DefaultConfig()
	p.Count = c.Count
	p.Gravity = c.Gravity
	p.Friction = c.Friction
	p.WallBounce = c.WallBounce
	p.MaxVelocity = c.MaxVelocity
	p.MinSize = c.MinSize
	p.MaxSize = c.MaxSize
	p.Size0 = c.Size0
	p.MaxZ = c.MaxZ
	p.FollowCursor = c.FollowCursor

	return render.Config{
		Physics:          p,
		Colors:           hexes(c.Colors),
		AmbientColor:     uint32(c.AmbientColor),
		AmbientIntensity: c.AmbientIntensity,
		LightIntensity:   c.LightIntensity,
		Material: render.Material{
			Metalness:          c.Material.Metalness,
			Roughness:          c.Material.Roughness,
			Clearcoat:          c.Material.Clearcoat,
			ClearcoatRoughness: c.Material.ClearcoatRoughness,
			Transmission:       c.Material.Transmission,
			IOR:                c.Material.IOR,
		},
	}
}
