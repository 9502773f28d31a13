package config

import (
	"strings"
	"testing"
)

func TestValidateBot_MissingCredentials(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		token       string
		wantErr     bool
		wantMention []string
	}{
		{
			name:    "all present",
			apiKey:  "key",
			token:   "token",
			wantErr: false,
		},
		{
			name:        "missing channel token",
			apiKey:      "key",
			wantErr:     true,
			wantMention: []string{"CHANNEL_TOKEN"},
		},
		{
			name:        "missing api key",
			token:       "token",
			wantErr:     true,
			wantMention: []string{"GEMINI_API_KEY"},
		},
		{
			name:        "missing both",
			wantErr:     true,
			wantMention: []string{"GEMINI_API_KEY", "CHANNEL_TOKEN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.Gemini.APIKey = tt.apiKey
			cfg.Channel.Token = tt.token

			err := cfg.ValidateBot()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateBot() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, name := range tt.wantMention {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("Diagnostic %q does not name %s", err.Error(), name)
				}
			}
		})
	}
}

func TestValidateAssistant(t *testing.T) {
	var cfg Config
	if err := cfg.ValidateAssistant(); err == nil {
		t.Error("Expected error without GEMINI_API_KEY")
	} else if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("Diagnostic %q does not name GEMINI_API_KEY", err.Error())
	}

	cfg.Gemini.APIKey = "key"
	if err := cfg.ValidateAssistant(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
