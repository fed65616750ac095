package template

// Package-manager tokens understood in command templates.
const (
	TokenInstall   = "$INSTALL"
	TokenUninstall = "$UNINSTALL"
	TokenUpdate    = "$UPDATE"
	TokenManager   = "$PM"
)

// PackageTokens returns the token table for a package manager binary such as
// "apt-get" or "apk". An empty manager yields no tokens.
func PackageTokens(manager string) map[string]string {
	if manager == "" {
		return nil
	}
	if manager == "apk" {
		return map[string]string{
			TokenManager:   manager,
			TokenInstall:   "apk add",
			TokenUninstall: "apk del",
			TokenUpdate:    "apk update",
		}
	}
	return map[string]string{
		TokenManager:   manager,
		TokenInstall:   manager + " install -y",
		TokenUninstall: manager + " remove -y",
		TokenUpdate: manager + " update -y && " + manager + " full-upgrade -y && " +
			manager + " autoremove -y && " + manager + " clean -y && " + manager + " autoclean -y",
	}
}
