package extract

import (
	"testing"

	"google.golang.org/genai"

	"github.com/rmendes/finance-pro/internal/prompt"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, Options{})

	if c.opts.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", c.opts.Model, DefaultModel)
	}
	if c.opts.Temperature == nil || *c.opts.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want default %v", c.opts.Temperature, DefaultTemperature)
	}
	if c.opts.SystemInstruction != prompt.SystemInstruction {
		t.Error("SystemInstruction default not applied")
	}
}

func TestNewClient_ZeroTemperatureIsRespected(t *testing.T) {
	c := NewClient(nil, Options{Temperature: genai.Ptr(float32(0))})

	if c.opts.Temperature == nil || *c.opts.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", c.opts.Temperature)
	}
}
