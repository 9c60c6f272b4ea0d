package config

// Settings is everything the provisioning run needs besides the dotfiles
// manifest. Defaults live in embedded/defaults.yaml.
type Settings struct {
	Dotfiles   Dotfiles   `koanf:"dotfiles"`
	Pacman     Pacman     `koanf:"pacman"`
	Repository Repository `koanf:"repository"`
	AURHelper  AURHelper  `koanf:"aur_helper"`
	Packages   []string   `koanf:"packages"`
	Services   []string   `koanf:"services"`
	OwnerFix   bool       `koanf:"owner_fix"`
	Log        Log        `koanf:"log"`
}

// Dotfiles locates the packaged configuration files and their manifest.
// - Dir: directory every directive source is relative to.
// - Manifest: path of the manifest file (.json, .yaml or .yml).
type Dotfiles struct {
	Dir      string `koanf:"dir"`
	Manifest string `koanf:"manifest"`
}

// Pacman holds the packages installed straight from the official repos
// before the third-party repository is bootstrapped.
type Pacman struct {
	BasePackages []string `koanf:"base_packages"`
}

// Repository describes the third-party pacman repository to bootstrap.
type Repository struct {
	Name          string `koanf:"name"`           // section name, e.g. chaotic-aur
	Key           string `koanf:"key"`            // signing key id
	Keyserver     string `koanf:"keyserver"`      // where to receive the key from
	KeyringURL    string `koanf:"keyring_url"`    // keyring package
	MirrorlistURL string `koanf:"mirrorlist_url"` // mirrorlist package
	Include       string `koanf:"include"`        // mirrorlist path written into the stanza
	ConfigFile    string `koanf:"config_file"`    // pacman.conf
}

// Section is the bracketed header of the repository stanza.
func (r Repository) Section() string {
	return "[" + r.Name + "]"
}

// AURHelper is the helper built from the AUR and then used for the main
// package install.
type AURHelper struct {
	Name     string `koanf:"name"`
	Repo     string `koanf:"repo"`
	BuildDir string `koanf:"build_dir"`
}

// Log controls the JSON log file next to the console output.
type Log struct {
	File bool `koanf:"file"`
}

// Directive is one manifest entry: copy Source (relative to the dotfiles
// dir) to Target, with shell commands run before and after the copy.
// Directives are read once and never modified.
type Directive struct {
	Source   string   `json:"source" yaml:"source"`
	Target   string   `json:"target" yaml:"target"`
	PreCopy  []string `json:"pre_copy" yaml:"pre_copy"`
	PostCopy []string `json:"post_copy" yaml:"post_copy"`
}
