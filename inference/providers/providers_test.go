package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderBackend
		wantErr bool
	}{
		{in: "", want: CPUProviderBackend},
		{in: "cpu", want: CPUProviderBackend},
		{in: " CUDA ", want: CUDAProviderBackend},
		{in: "coreml", want: CoreMLProviderBackend},
		{in: "OpenVINO", want: OpenVINOProviderBackend},
		{in: "tpu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProvider(t *testing.T) {
	for _, b := range append(Backends, "") {
		p, err := NewProvider(Config{Backend: b})
		require.NoError(t, err)
		if b == "" {
			assert.Equal(t, CPUProviderBackend, p.Backend())
			continue
		}
		assert.Equal(t, b, p.Backend())
	}

	_, err := NewProvider(Config{Backend: "tpu"})
	assert.Error(t, err)
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t,
		CoreMLFlagUseCPUOnly|CoreMLFlagCreateMLProgram,
		CoreMLOptions{UseCPUOnly: true, MLProgram: true}.Flags())
}

func TestOpenVINOToMap(t *testing.T) {
	assert.Empty(t, OpenVINOOptions{}.ToMap())
	assert.Equal(t, map[string]string{
		"device_type":    "GPU",
		"precision":      "FP16",
		"num_of_threads": "4",
	}, OpenVINOOptions{DeviceType: "GPU", Precision: "FP16", NumOfThreads: 4}.ToMap())
}

func TestCUDAToMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 1, GPUMemLimit: 1 << 30, ArenaExtendStrategy: 1, CudnnConvAlgoSearch: 9}.ToMap()
	assert.Equal(t, "1", m["device_id"])
	assert.Equal(t, "1073741824", m["gpu_mem_limit"])
	assert.Equal(t, "kSameAsRequested", m["arena_extend_strategy"])
	assert.Equal(t, "EXHAUSTIVE", m["cudnn_conv_algo_search"], "out of range falls back to the first value")
	assert.Equal(t, "0", m["do_copy_in_default_stream"])

	_, ok := CUDAOptions{}.ToMap()["gpu_mem_limit"]
	assert.False(t, ok)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Backend: "tpu"}.Validate())
	assert.Error(t, Config{IntraOpNumThreads: -1}.Validate())
}

func TestResolveSharedLibPath(t *testing.T) {
	t.Setenv(SharedLibEnv, "")

	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte("x"), 0o600))

	got, err := ResolveSharedLibPath(lib)
	require.NoError(t, err)
	assert.Equal(t, lib, got)

	t.Setenv(SharedLibEnv, lib)
	got, err = ResolveSharedLibPath(filepath.Join(t.TempDir(), "missing.so"))
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestResolveSharedLibPathMissing(t *testing.T) {
	if _, err := os.Stat(GetSharedLibPath()); err == nil {
		t.Skip("platform library present in working directory")
	}
	t.Setenv(SharedLibEnv, "")

	_, err := ResolveSharedLibPath(filepath.Join(t.TempDir(), "missing.so"))
	assert.Error(t, err)
}
