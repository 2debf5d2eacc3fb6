package config

// Default returns the baseline configuration that a config document overlays.
// Sample counts assume 16kHz mono capture.
func Default() Config {
	return Config{
		CarryoverBufferSize:    16000,
		RefreshBufferThreshold: 48000,
		GapDetectionMS:         500,
		Decoder: DecoderConfig{
			Endpoint:      "127.0.0.1:50051",
			Method:        "/casl.decoder.v1.Decoder/Decode",
			DialTimeoutMS: 3000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
	}
}
