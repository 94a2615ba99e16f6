package cli

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage sprintcrew configuration files and settings.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newConfigShowCommand(c))
	cmd.AddCommand(newConfigTemplateCommand())
	cmd.AddCommand(newConfigInitCommand(c))

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(c *app.Container) *cobra.Command {
	var ignoreGlobal, ignoreLocal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display effective configuration after merging all sources.

Shows which config files were loaded and the final merged configuration.
Use --ignore-global or --ignore-local to exclude specific sources for debugging.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{
				IgnoreGlobal: ignoreGlobal,
				IgnoreLocal:  ignoreLocal,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(w, "[Loaded from]")
			if !ignoreGlobal {
				printConfigSource(w, out.GlobalConfig)
			}
			if !ignoreLocal {
				printConfigSource(w, out.LocalConfig)
			}
			_, _ = fmt.Fprintln(w)

			writeWarnings(cmd.ErrOrStderr(), out.Effective.Warnings)

			_, _ = fmt.Fprintln(w, "[Effective Config]")
			return formatEffectiveConfig(w, out.Effective)
		},
	}

	cmd.Flags().BoolVar(&ignoreGlobal, "ignore-global", false, "Ignore global configuration")
	cmd.Flags().BoolVar(&ignoreLocal, "ignore-local", false, "Ignore data directory configuration (.sprintcrew/config.toml)")

	return cmd
}

func printConfigSource(w io.Writer, info domain.ConfigInfo) {
	if info.Path == "" {
		return
	}
	if info.Exists {
		_, _ = fmt.Fprintf(w, "- %s\n", info.Path)
	} else {
		_, _ = fmt.Fprintf(w, "- %s (not found)\n", info.Path)
	}
}

// formatEffectiveConfig formats the effective config in TOML format.
// Uses reflection to pick up every tagged section of domain.Config.
// Durations are printed as strings so the output can be pasted back into a file.
func formatEffectiveConfig(w io.Writer, cfg *domain.Config) error {
	output := make(map[string]any)

	cfgVal := reflect.ValueOf(cfg).Elem()
	cfgType := cfgVal.Type()
	for i := 0; i < cfgVal.NumField(); i++ {
		field := cfgType.Field(i)
		tag := field.Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		tagName := strings.Split(tag, ",")[0]
		output[tagName] = sectionMap(cfgVal.Field(i))
	}

	// Tokens are secrets; only their count is shown.
	if auth, ok := output["auth"].(map[string]any); ok {
		auth["tokens"] = fmt.Sprintf("%d configured", len(cfg.Auth.Tokens))
	}

	if err := toml.NewEncoder(w).Encode(output); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func sectionMap(v reflect.Value) map[string]any {
	out := make(map[string]any)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		field := v.Field(i)
		if s, ok := field.Interface().(fmt.Stringer); ok {
			out[name] = s.String()
			continue
		}
		out[name] = field.Interface()
	}
	return out
}

// newConfigTemplateCommand creates the config template subcommand.
func newConfigTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Output configuration template",
		Long: `Output a configuration file template with default values to stdout.

It does not depend on existing configuration files and will work even if they are broken.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := domain.RenderConfigTemplate(domain.NewDefaultConfig())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate configuration file template",
		Long: `Generate a configuration file template.

By default, creates the data directory configuration file at .sprintcrew/config.toml.
With --global, creates the global configuration file at ~/.config/sprintcrew/config.toml.

Error conditions:
- Target file already exists: error`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{
				Global: global,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Generate global configuration")

	return cmd
}
