package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "equals form",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-d", "-w", "2h"},
			allowedFlags: []string{"-d", "-w"},
			want:         []string{"-d", "-w", "2h"},
		},
		{
			name:         "repeated flag keeps order",
			args:         []string{"-r", "3", "-r", "5"},
			allowedFlags: []string{"-r"},
			want:         []string{"-r", "3", "-r", "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, "/etc/wotcsync.json", ConfigFilePath([]string{"-c", "/etc/wotcsync.json"}))
	assert.Equal(t, "/tmp/b.json", ConfigFilePath([]string{"-config", "/tmp/a.json", "-c", "/tmp/b.json"}))
	assert.Equal(t, "x.json", ConfigFilePath([]string{"-a", ":8080", "-config=x.json"}))
	assert.Empty(t, ConfigFilePath([]string{"-a", ":8080"}))
}
