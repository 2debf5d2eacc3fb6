// Package config resolves, decodes, validates, and defaults casl configuration.
package config

// Config is the fully materialized runtime configuration. It is read-only after
// Load; worker contexts take their own copy through Clone.
type Config struct {
	Model                  string             `json:"model"`
	Scorer                 string             `json:"scorer,omitempty"`
	CarryoverBufferSize    int                `json:"carryover_buffer_size"`
	RefreshBufferThreshold int                `json:"refresh_buffer_threshold"`
	GapDetectionMS         uint32             `json:"gap_detection_ms"`
	Preprocessors          []PreprocessorSpec `json:"preprocessors"`
	Commands               []CommandSpec      `json:"commands"`
	Debug                  bool               `json:"debug"`
	Decoder                DecoderConfig      `json:"decoder"`
	Audio                  AudioConfig        `json:"audio"`
}

// DecoderConfig locates the remote speech-to-text service.
type DecoderConfig struct {
	Endpoint      string `json:"endpoint"`
	Method        string `json:"method"`
	DialTimeoutMS int    `json:"dial_timeout_ms"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `json:"input"`
	Fallback string `json:"fallback"`
}

// Mapping is one search/replace rule of a remap table.
type Mapping struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
	Name    string `json:"name,omitempty"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

// PreprocessorKind is the `type` discriminator of a preprocessor spec.
type PreprocessorKind string

const (
	PreprocessorRemap     PreprocessorKind = "Remap"
	PreprocessorNormalize PreprocessorKind = "Normalize"
)

// PreprocessorSpec is one entry of the ordered preprocessing chain.
// Implementations: RemapSpec, NormalizeSpec.
type PreprocessorSpec interface {
	Kind() PreprocessorKind
	isPreprocessor()
}

// RemapSpec is an ordered table of mappings; the first match wins.
type RemapSpec struct {
	Mappings []Mapping `json:"mappings"`
}

// NormalizeSpec collapses whitespace runs and trims the phrase.
type NormalizeSpec struct{}

func (RemapSpec) Kind() PreprocessorKind     { return PreprocessorRemap }
func (NormalizeSpec) Kind() PreprocessorKind { return PreprocessorNormalize }
func (RemapSpec) isPreprocessor()            {}
func (NormalizeSpec) isPreprocessor()        {}

// CommandKind is the `type` discriminator of a command spec.
type CommandKind string

const (
	CommandNet      CommandKind = "Net"
	CommandStdIO    CommandKind = "StdIO"
	CommandShell    CommandKind = "Shell"
	CommandRedirect CommandKind = "Redirect"
	CommandAction   CommandKind = "Action"
)

// CommandSpec pairs a precondition pattern with the transport that fires when
// it matches.
type CommandSpec struct {
	Precondition string
	UseRawText   bool
	Transport    Transport
}

// Transport is the closed set of dispatch variants.
// Implementations: NetTransport, StdIOTransport, ShellTransport,
// RedirectTransport, ActionTransport.
type Transport interface {
	Kind() CommandKind
	isTransport()
}
