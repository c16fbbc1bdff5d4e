// Package config - Runtime configuration for the detection pipeline.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-wildlife/inference"
	"github.com/nvr-ai/go-wildlife/inference/providers"
	"github.com/nvr-ai/go-wildlife/models/postprocess"
	"github.com/nvr-ai/go-wildlife/models/preprocess"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "WILDLIFE_"

// DefaultModelPath is the YOLOv8 nano export looked up in the working
// directory and next to the executable.
const DefaultModelPath = "yolov8n.onnx"

// Config holds every tunable of the pipeline.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path"      yaml:"model_path"`
	// SharedLibPath overrides the ONNX Runtime shared library location.
	SharedLibPath string `json:"shared_lib_path" yaml:"shared_lib_path"`
	// InputSize is the side S of the square model input.
	InputSize int `json:"input_size"      yaml:"input_size"`
	// ConfThreshold drops decoded boxes below this class score.
	ConfThreshold float32 `json:"conf_threshold"  yaml:"conf_threshold"`
	// IoUThreshold is the NMS overlap at or above which boxes are suppressed.
	IoUThreshold float32 `json:"iou_threshold"   yaml:"iou_threshold"`
	// ClassAwareNMS limits suppression to boxes of the same class.
	ClassAwareNMS bool `json:"class_aware_nms" yaml:"class_aware_nms"`
	// PoolSize is the number of model sessions.
	PoolSize int `json:"pool_size"       yaml:"pool_size"`
	// Provider is the execution provider name (cpu, cuda, coreml, openvino).
	Provider string `json:"provider"        yaml:"provider"`
	// OutputDir receives annotated images that have no source path.
	OutputDir string `json:"output_dir"      yaml:"output_dir"`
	// ForceMock skips model loading and always uses the mock backend.
	ForceMock bool `json:"force_mock"      yaml:"force_mock"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"       yaml:"log_level"`
}

// Default returns the YOLOv8n configuration.
func Default() Config {
	return Config{
		ModelPath:     DefaultModelPath,
		InputSize:     preprocess.DefaultInputSize,
		ConfThreshold: postprocess.DefaultConfidenceThreshold,
		IoUThreshold:  postprocess.DefaultIoUThreshold,
		PoolSize:      inference.DefaultPoolSize,
		Provider:      string(providers.CPUProviderBackend),
		OutputDir:     os.TempDir(),
		LogLevel:      "info",
	}
}

// Load reads the given .env files (".env" when none are named; missing
// files are skipped), then overlays WILDLIFE_* environment variables on
// Default. Variables already set in the process take precedence over the
// files.
//
// Returns:
//   - Config: The loaded configuration.
//   - error: Every malformed value, combined.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "error loading %s", f)
		}
	}

	cfg := Default()
	var err error

	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.SharedLibPath = getEnv("ORT_LIB_PATH", cfg.SharedLibPath)
	cfg.Provider = getEnv("PROVIDER", cfg.Provider)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.InputSize = getEnvAsInt("INPUT_SIZE", cfg.InputSize, &err)
	cfg.PoolSize = getEnvAsInt("POOL_SIZE", cfg.PoolSize, &err)
	cfg.ConfThreshold = getEnvAsFloat32("CONF_THRESHOLD", cfg.ConfThreshold, &err)
	cfg.IoUThreshold = getEnvAsFloat32("IOU_THRESHOLD", cfg.IoUThreshold, &err)
	cfg.ClassAwareNMS = getEnvAsBool("CLASS_AWARE_NMS", cfg.ClassAwareNMS, &err)
	cfg.ForceMock = getEnvAsBool("FORCE_MOCK", cfg.ForceMock, &err)

	return cfg, err
}

// Validate reports every invalid field, combined.
func (c Config) Validate() error {
	var err error
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		err = multierr.Append(err, errors.Errorf("input_size must be a positive multiple of 32, got %d", c.InputSize))
	}
	if !(c.ConfThreshold >= 0 && c.ConfThreshold <= 1) {
		err = multierr.Append(err, errors.Errorf("conf_threshold must be in [0, 1], got %v", c.ConfThreshold))
	}
	if !(c.IoUThreshold > 0 && c.IoUThreshold <= 1) {
		err = multierr.Append(err, errors.Errorf("iou_threshold must be in (0, 1], got %v", c.IoUThreshold))
	}
	if c.PoolSize < 0 {
		err = multierr.Append(err, errors.Errorf("pool_size must not be negative, got %d", c.PoolSize))
	}
	if _, perr := providers.ParseBackend(c.Provider); perr != nil {
		err = multierr.Append(err, perr)
	}
	return err
}

// ONNX converts the config into backend settings.
func (c Config) ONNX() (inference.ONNXConfig, error) {
	backend, err := providers.ParseBackend(c.Provider)
	if err != nil {
		return inference.ONNXConfig{}, err
	}

	provider := providers.DefaultConfig()
	provider.Backend = backend

	return inference.ONNXConfig{
		ModelPath:     c.ModelPath,
		SharedLibPath: c.SharedLibPath,
		InputSize:     c.InputSize,
		PoolSize:      c.PoolSize,
		Provider:      provider,
	}, nil
}

// NMS converts the config into suppression settings.
func (c Config) NMS() *postprocess.NMSConfig {
	return &postprocess.NMSConfig{IoUThreshold: c.IoUThreshold, ClassAware: c.ClassAwareNMS}
}

// Preprocess converts the config into preprocessing settings.
func (c Config) Preprocess() *preprocess.Config {
	cfg := preprocess.DefaultConfig()
	cfg.InputSize = c.InputSize
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, errs *error) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		*errs = multierr.Append(*errs, errors.Errorf("%s%s: invalid integer %q", EnvPrefix, key, value))
		return defaultValue
	}
	return v
}

func getEnvAsFloat32(key string, defaultValue float32, errs *error) float32 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 32)
	if err != nil {
		*errs = multierr.Append(*errs, errors.Errorf("%s%s: invalid number %q", EnvPrefix, key, value))
		return defaultValue
	}
	return float32(v)
}

func getEnvAsBool(key string, defaultValue bool, errs *error) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		*errs = multierr.Append(*errs, errors.Errorf("%s%s: invalid boolean %q", EnvPrefix, key, value))
		return defaultValue
	}
	return v
}
