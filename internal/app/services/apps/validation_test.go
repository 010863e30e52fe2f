package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservedPrefixValidator(t *testing.T) {
	cases := []struct {
		name  string
		envs  map[string]string
		codes int
	}{
		{name: "nil mapping", envs: nil, codes: 0},
		{name: "plain keys", envs: map[string]string{"DATABASE_URL": "x", "LOG_LEVEL": "debug"}, codes: 0},
		{name: "empty key", envs: map[string]string{"": "x"}, codes: 1},
		{name: "port upper", envs: map[string]string{"PORT": "8080"}, codes: 1},
		{name: "port lower", envs: map[string]string{"port": "8080"}, codes: 1},
		{name: "vcap prefix", envs: map[string]string{"VCAP_SERVICES": "{}"}, codes: 1},
		{name: "vcap prefix lower", envs: map[string]string{"vcap_application": "{}"}, codes: 1},
		{name: "vcap substring allowed", envs: map[string]string{"MY_VCAP_THING": "x"}, codes: 0},
		{name: "mixed", envs: map[string]string{"PORT": "1", "VCAP_X": "2", "OK": "3"}, codes: 2},
	}

	v := ReservedPrefixValidator{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			violations := v.ValidateEach(tc.envs)
			assert.Len(t, violations, tc.codes)
			for _, violation := range violations {
				assert.Equal(t, CodeInvalidEnvVar, violation.Code)
			}
		})
	}
}

func TestNameFormat(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"my-app", true},
		{"app_1.prod", true},
		{"UPPER", true},
		{"with space", true},
		{"", false},
		{"tab\tname", false},
		{"new\nline", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.valid, nameFormat.MatchString(tc.name), "name %q", tc.name)
	}
}
