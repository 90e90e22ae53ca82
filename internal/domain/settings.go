package domain

// Process-wide storage keys.
const (
	SettingConfig        = "config"
	SettingPendingBuild  = "pending_build"
	SettingActiveLicense = "active_license"
)

// VisualConfig is read by the decorative renderer at startup. It is written
// by an external settings UI, never by the builder core.
type VisualConfig struct {
	MatrixColors []string `json:"matrixColors"`
	RainOpacity  float64  `json:"rainOpacity"`
	CoreColor    string   `json:"coreColor"`
	WireColor    string   `json:"wireColor"`
	Speed        float64  `json:"speed"`
}

// DefaultVisualConfig is used whenever no usable config is stored.
func DefaultVisualConfig() VisualConfig {
	return VisualConfig{
		MatrixColors: []string{"#00f3ff", "#00ff00", "#ffffff", "#808080", "#ff0000"},
		RainOpacity:  0.6,
		CoreColor:    "#000000",
		WireColor:    "#00f3ff",
		Speed:        4,
	}
}

type SettingsStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
