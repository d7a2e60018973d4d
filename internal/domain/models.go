// Package domain contains the core domain types for the localization pipeline.
package domain

// Segment is one translatable unit of text extracted from a resource file.
// Segments are consumed read-only by the batching and routing core.
type Segment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	TargetLang string `json:"targetLang,omitempty"`
}

// ModelKind identifies which translation backend produced a result.
type ModelKind int

const (
	// ModelNMT is the fast default backend for small segments.
	ModelNMT ModelKind = iota
	// ModelLLM is the higher-latency backend for large segments.
	ModelLLM
	// ModelNMTFallback marks an NMT result produced after an LLM failure.
	ModelNMTFallback
)

// String returns the display name used in metrics and reports.
func (m ModelKind) String() string {
	switch m {
	case ModelLLM:
		return "LLM"
	case ModelNMTFallback:
		return "NMT (fallback)"
	default:
		return "NMT"
	}
}

// IsNMTFamily reports whether the result came out of the NMT backend,
// either as the primary choice or as a fallback.
func (m ModelKind) IsNMTFamily() bool {
	return m == ModelNMT || m == ModelNMTFallback
}

// MarshalJSON encodes the kind by its display name.
func (m ModelKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Infrastructure identifies the execution target chosen for a request.
type Infrastructure int

const (
	// InfraDefault is reported when infrastructure routing is disabled.
	InfraDefault Infrastructure = iota
	// InfraServerless is the low-load execution target.
	InfraServerless
	// InfraVM is the high-load execution target.
	InfraVM
)

// String returns the display name used in metrics and reports.
func (i Infrastructure) String() string {
	switch i {
	case InfraServerless:
		return "Serverless"
	case InfraVM:
		return "VM"
	default:
		return "Default"
	}
}

// MarshalJSON encodes the infrastructure by its display name.
func (i Infrastructure) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}
