package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/homiodev/homio-hquery/internal/env"
	"github.com/homiodev/homio-hquery/internal/query"
)

func TestReplaceArgs(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		args []query.Arg
		want string
	}{
		{
			name: "named",
			tmpl: "iwlist :iface scan",
			args: []query.Arg{query.Named("iface", "wlan0")},
			want: "iwlist wlan0 scan",
		},
		{
			name: "named repeated",
			tmpl: "ip link set :iface down && ip link set :iface up",
			args: []query.Arg{query.Named("iface", "eth0")},
			want: "ip link set eth0 down && ip link set eth0 up",
		},
		{
			name: "named is word bounded",
			tmpl: "echo :ifaceName :iface",
			args: []query.Arg{query.Named("iface", "wlan0")},
			want: "echo :ifaceName wlan0",
		},
		{
			name: "positional fills in order",
			tmpl: "cp :src :dst",
			args: []query.Arg{query.Positional("a.txt"), query.Positional("b.txt")},
			want: "cp a.txt b.txt",
		},
		{
			name: "named value containing its own placeholder",
			tmpl: "echo :x",
			args: []query.Arg{query.Named("x", ":x")},
			want: "echo :x",
		},
		{
			name: "ports and urls are not placeholders",
			tmpl: "curl http://localhost:8080/:path",
			args: []query.Arg{query.Positional("status")},
			want: "curl http://localhost:8080/status",
		},
		{
			name: "env defaults are not placeholders",
			tmpl: "ls ${DIR:tmp} :flags",
			args: []query.Arg{query.Positional("-la")},
			want: "ls ${DIR:tmp} -la",
		},
		{
			name: "bracket classes are not placeholders",
			tmpl: "grep -E '[[:digit:]]+' :file",
			args: []query.Arg{query.Positional("/tmp/x")},
			want: "grep -E '[[:digit:]]+' /tmp/x",
		},
		{
			name: "named skips bracket classes",
			tmpl: "tr -d '[:space:]' < :space",
			args: []query.Arg{query.Named("space", "in.txt")},
			want: "tr -d '[:space:]' < in.txt",
		},
		{
			name: "no args",
			tmpl: "uptime",
			want: "uptime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceArgs(tt.tmpl, tt.args))
		})
	}
}

func TestExpandEnv(t *testing.T) {
	lookup := env.FromMap(map[string]string{"HOME": "/home/pi"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"found", "ls ${HOME}", "ls /home/pi"},
		{"found ignores default", "ls ${HOME:/root}", "ls /home/pi"},
		{"missing uses default", "ls ${DATA:/var/lib}", "ls /var/lib"},
		{"missing without default", "ls ${DATA}", "ls "},
		{"default keeps colons", "echo ${URL:http://x:1}", "echo http://x:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandEnv(tt.in, lookup))
		})
	}

	assert.Equal(t, "x d", ExpandEnv("x ${A:d}", nil))
}

func TestResolver_Resolve(t *testing.T) {
	r := New(env.FromMap(map[string]string{"USER": "pi"}), PackageTokens("apt-get"))

	t.Run("args env and tokens", func(t *testing.T) {
		got := r.Resolve("$INSTALL :soft && chown ${USER} /opt/:soft", []query.Arg{query.Named("soft", "nano")})
		assert.Equal(t, "apt-get install -y nano && chown pi /opt/nano", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		args := []query.Arg{query.Named("soft", "nano")}
		assert.Equal(t, r.Resolve("$UNINSTALL :soft", args), r.Resolve("$UNINSTALL :soft", args))
		assert.Equal(t, "apt-get remove -y nano", r.Resolve("$UNINSTALL :soft", args))
	})

	t.Run("resolve all", func(t *testing.T) {
		parts := r.ResolveAll([]string{"ls", ":dir"}, []query.Arg{query.Positional("/tmp")})
		assert.Equal(t, []string{"ls", "/tmp"}, parts)
		assert.Equal(t, "ls, /tmp", Key(parts))
	})
}

func TestPackageTokens(t *testing.T) {
	assert.Nil(t, PackageTokens(""))

	apk := PackageTokens("apk")
	assert.Equal(t, "apk add", apk[TokenInstall])
	assert.Equal(t, "apk del", apk[TokenUninstall])
	assert.Equal(t, "apk update", apk[TokenUpdate])

	apt := PackageTokens("apt")
	assert.Equal(t, "apt install -y", apt[TokenInstall])
	assert.Contains(t, apt[TokenUpdate], "apt autoclean -y")
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("iwconfig :iface essid ':essid' key :password", "echo :iface ${X:y}")
	assert.Equal(t, []string{"iface", "essid", "password"}, got)

	assert.Empty(t, Placeholders("cat /sys/class/thermal/thermal_zone0/temp | grep -o -E '[[:digit:]].*'"))
	assert.Equal(t, []string{"file"}, Placeholders("grep -c '[[:alpha:]]' :file"))
}

func TestResolver_Display(t *testing.T) {
	r := New(env.FromMap(map[string]string{
		"secret.token": "s3cr3t",
		"HOST":         "example.com",
	}), nil)

	tmpl := "curl -H 'Auth: ${secret.token}' ${HOST}/:path ${secret.missing:none}"
	args := []query.Arg{query.Positional("status")}

	assert.Equal(t, "curl -H 'Auth: s3cr3t' example.com/status none", r.Resolve(tmpl, args))
	assert.Equal(t, "curl -H 'Auth: ***' example.com/status none", r.Display(tmpl, args))
	assert.Equal(t, []string{"echo ***"}, r.DisplayAll([]string{"echo ${secret.token}"}, nil))
}
