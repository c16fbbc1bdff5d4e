// Package providers - CPU based execution provider.
package providers

import ort "github.com/yalue/onnxruntime_go"

// CPUProvider is the default provider. ONNX Runtime always has CPU kernels,
// so nothing is appended.
type CPUProvider struct{}

// Backend returns the backend of the CPU provider.
func (p *CPUProvider) Backend() ProviderBackend {
	return CPUProviderBackend
}

// Append is a no-op for the CPU provider.
func (p *CPUProvider) Append(*ort.SessionOptions) error {
	return nil
}
