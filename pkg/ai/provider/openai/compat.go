// ABOUTME: Compatibility flags for the inference servers this client talks to
// ABOUTME: llama.cpp needs cache_prompt to keep the KV cache between requests

package openai

import "github.com/mauromedda/pi-complete-go/pkg/ai/internal/httputil"

// CompatMode defines compatibility adjustments for different API servers.
type CompatMode int

const (
	CompatAuto     CompatMode = iota // decide from the base URL
	CompatStandard                   // plain OpenAI API
	CompatLlamaCpp                   // llama.cpp llama-server
)

func (c CompatMode) String() string {
	switch c {
	case CompatStandard:
		return "standard"
	case CompatLlamaCpp:
		return "llama.cpp"
	default:
		return "auto"
	}
}

// ParseCompat maps a config string to a mode. Unknown values select auto.
func ParseCompat(s string) CompatMode {
	switch s {
	case "standard", "openai":
		return CompatStandard
	case "llama.cpp", "llamacpp", "llama":
		return CompatLlamaCpp
	default:
		return CompatAuto
	}
}

// DetectCompat resolves CompatAuto from the base URL: loopback endpoints are
// assumed to be a local llama-server, everything else speaks plain OpenAI.
func DetectCompat(baseURL string) CompatMode {
	if httputil.IsLocalURL(baseURL) {
		return CompatLlamaCpp
	}
	return CompatStandard
}
