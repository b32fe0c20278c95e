package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/viper"
)

var branchPrefixRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

type Config struct {
	VersionFile  string            `mapstructure:"version_file"`
	BranchPrefix string            `mapstructure:"branch_prefix"`
	Remote       string            `mapstructure:"remote"`
	StateDir     string            `mapstructure:"state_dir"`
	LogLevel     string            `mapstructure:"log_level"`
	LogFile      string            `mapstructure:"log_file"`
	AuthorName   string            `mapstructure:"author_name"`
	AuthorEmail  string            `mapstructure:"author_email"`
	GitToken     string            `mapstructure:"git_token"`
	PushRetries  uint64            `mapstructure:"push_retries"`
	GithubOwner  string            `mapstructure:"github_owner"`
	GithubRepo   string            `mapstructure:"github_repo"`
	PullRequest  PullRequestConfig `mapstructure:"pull_request"`
}

// PullRequestConfig controls the optional pull request opened after the push.
type PullRequestConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Base    string   `mapstructure:"base"`
	Labels  []string `mapstructure:"labels"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		VersionFile:  "version.py",
		BranchPrefix: "release",
		StateDir:     ".release-state",
		LogLevel:     "INFO",
		PullRequest: PullRequestConfig{
			Labels: []string{"release"},
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateRelativePath("version_file", c.VersionFile); err != nil {
		return err
	}
	if err := validateRelativePath("state_dir", c.StateDir); err != nil {
		return err
	}
	if c.BranchPrefix == "" {
		return fmt.Errorf("branch_prefix cannot be empty")
	}
	if strings.HasPrefix(c.BranchPrefix, "/") || strings.HasSuffix(c.BranchPrefix, "/") ||
		strings.Contains(c.BranchPrefix, "..") || !branchPrefixRegex.MatchString(c.BranchPrefix) {
		return fmt.Errorf("invalid branch_prefix: %s", c.BranchPrefix)
	}
	if (c.AuthorName == "") != (c.AuthorEmail == "") {
		return fmt.Errorf("author_name and author_email must be set together")
	}
	if c.PullRequest.Enabled {
		return c.ValidateForGitHubOperations()
	}
	return nil
}

// ValidateForGitHubOperations validates the settings the pull request step depends on
func (c *Config) ValidateForGitHubOperations() error {
	if c.GitToken == "" {
		return fmt.Errorf("git_token is required when pull_request.enabled is set")
	}
	if err := ValidateGitHubToken(c.GitToken); err != nil {
		return fmt.Errorf("invalid git_token: %w", err)
	}
	if err := ValidateGitHubOwnerRepo(c.GithubOwner, c.GithubRepo); err != nil {
		return fmt.Errorf("invalid github configuration: %w", err)
	}
	return nil
}

func validateRelativePath(key, path string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s must be relative to the repository root", key)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains invalid path traversal", key)
	}
	return nil
}

// ValidateGitHubToken validates GitHub token format (exported for reuse)
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 40 {
		return fmt.Errorf("token too short: expected at least 40 characters")
	}
	classicPAT := regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	fineGrainedPAT := regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)
	appToken := regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)
	oauthToken := regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`)
	if !classicPAT.MatchString(token) &&
		!fineGrainedPAT.MatchString(token) &&
		!appToken.MatchString(token) &&
		!oauthToken.MatchString(token) {
		return fmt.Errorf("invalid token format")
	}
	return nil
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	validName := regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName(".release-bump")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("RELEASE_BUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// BindEnv checks the variables in order
	bindings := map[string][]string{
		"log_level":    {"RELEASE_BUMP_LOG_LEVEL", "LOG_LEVEL"},
		"git_token":    {"RELEASE_BUMP_GIT_TOKEN", "GITHUB_TOKEN"},
		"github_owner": {"RELEASE_BUMP_GITHUB_OWNER", "GITHUB_REPOSITORY_OWNER"},
		"github_repo":  {"RELEASE_BUMP_GITHUB_REPO", "GITHUB_REPOSITORY_NAME"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	defaults := DefaultConfig()
	v.SetDefault("version_file", defaults.VersionFile)
	v.SetDefault("branch_prefix", defaults.BranchPrefix)
	v.SetDefault("remote", "")
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("author_name", "")
	v.SetDefault("author_email", "")
	v.SetDefault("push_retries", 0)
	v.SetDefault("pull_request.enabled", false)
	v.SetDefault("pull_request.base", "")
	v.SetDefault("pull_request.labels", defaults.PullRequest.Labels)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.PullRequest.Enabled {
		if err := populateRepositoryDefaults(&config); err != nil {
			return nil, fmt.Errorf("failed to resolve github repository: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// populateRepositoryDefaults fills GithubOwner and GithubRepo from GITHUB_REPOSITORY
// or, failing that, from the URL of the release remote.
func populateRepositoryDefaults(cfg *Config) error {
	if cfg.GithubOwner != "" && cfg.GithubRepo != "" {
		return nil
	}
	if slug := os.Getenv("GITHUB_REPOSITORY"); slug != "" {
		if owner, repo, ok := strings.Cut(slug, "/"); ok && owner != "" && repo != "" {
			setMissing(cfg, owner, repo)
			return nil
		}
	}
	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}
	name := cfg.Remote
	if name == "" {
		name = "origin"
	}
	remote, err := repo.Remote(name)
	if err != nil {
		return fmt.Errorf("failed to get remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return fmt.Errorf("remote %s has no URL", name)
	}
	owner, repoName, err := parseGitRemoteURL(urls[0])
	if err != nil {
		return err
	}
	setMissing(cfg, owner, repoName)
	return nil
}

func setMissing(cfg *Config, owner, repo string) {
	if cfg.GithubOwner == "" {
		cfg.GithubOwner = owner
	}
	if cfg.GithubRepo == "" {
		cfg.GithubRepo = repo
	}
}

// parseGitRemoteURL extracts owner and repository from https, ssh, scp-like and path remotes.
func parseGitRemoteURL(raw string) (string, string, error) {
	path := strings.TrimSpace(raw)
	switch {
	case strings.Contains(path, "://"):
		u, err := url.Parse(path)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote url %q: %w", raw, err)
		}
		path = u.Path
	case strings.Contains(path, "@") && strings.Contains(path, ":"):
		_, path, _ = strings.Cut(path, ":")
	}
	path = strings.TrimSuffix(filepath.ToSlash(path), ".git")
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", "", fmt.Errorf("cannot derive owner/repo from remote url %q", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
