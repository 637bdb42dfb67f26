package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"
	"github.com/kadirbelkuyu/oracle2pg/internal/profiles"
)

const defaultConfigDir = "configs"

// Application collects migration parameters on the console.
type Application struct {
	reader         *bufio.Reader
	out            io.Writer
	printBanner    func()
	profileManager *profiles.Manager
	service        *Service
}

func NewApplication(r io.Reader, printBanner func()) *Application {
	if r == nil {
		r = os.Stdin
	}

	var reader *bufio.Reader
	if br, ok := r.(*bufio.Reader); ok {
		reader = br
	} else {
		reader = bufio.NewReader(r)
	}

	return &Application{
		reader:         reader,
		out:            os.Stdout,
		printBanner:    printBanner,
		profileManager: profiles.NewManager(defaultConfigDir),
		service:        NewService(os.Stdout),
	}
}

func (a *Application) RunInteractive(ctx context.Context) error {
	if a.printBanner != nil {
		a.printBanner()
	}

	cfg, verboseFlag, err := a.CollectConfig()
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, "Exiting.")
			return nil
		}
		return err
	}

	start, err := a.promptYesNo("Start the migration now?", true)
	if err != nil || !start {
		return err
	}

	return a.service.Migrate(ctx, cfg, verboseFlag)
}

// CollectConfig offers the saved profiles and otherwise asks for every
// parameter, starting from the defaults.
func (a *Application) CollectConfig() (*config.Config, bool, error) {
	cfg, ok, err := a.selectProfile()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		cfg, err = a.promptConfig()
		if err != nil {
			return nil, false, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, false, err
		}
		if err := a.persistConfig(cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, false, err
			}
			fmt.Fprintf(a.out, "Warning: failed to save config: %v\n", err)
		}
	}

	verboseFlag, err := a.promptYesNo("Enable verbose logging?", false)
	if err != nil {
		return nil, false, err
	}
	return cfg, verboseFlag, nil
}

func (a *Application) promptConfig() (*config.Config, error) {
	cfg := config.Default()
	var err error

	fmt.Fprintln(a.out, "\nOracle source:")
	if cfg.Source.Host, err = a.promptStringWithDefault("Host", cfg.Source.Host); err != nil {
		return nil, err
	}
	if cfg.Source.Port, err = a.promptInt("Port", cfg.Source.Port); err != nil {
		return nil, err
	}
	if cfg.Source.Database, err = a.promptStringWithDefault("Service name", cfg.Source.Database); err != nil {
		return nil, err
	}
	if cfg.Source.Username, err = a.promptStringWithDefault("Username", cfg.Source.Username); err != nil {
		return nil, err
	}
	if cfg.Source.Password, err = a.promptString("Password (leave blank for none)", false); err != nil {
		return nil, err
	}
	owner, err := a.promptStringWithDefault("Schema owner", strings.ToUpper(cfg.Source.Username))
	if err != nil {
		return nil, err
	}
	cfg.Source.Owner = strings.ToUpper(owner)
	tables, err := a.promptStringWithDefault("Tables (comma separated, * for all)", "*")
	if err != nil {
		return nil, err
	}
	cfg.Source.Tables = []string{strings.ToUpper(tables)}

	fmt.Fprintln(a.out, "\nPostgreSQL target:")
	if cfg.Target.Host, err = a.promptStringWithDefault("Host", cfg.Target.Host); err != nil {
		return nil, err
	}
	if cfg.Target.Port, err = a.promptInt("Port", cfg.Target.Port); err != nil {
		return nil, err
	}
	if cfg.Target.Database, err = a.promptStringWithDefault("Database name", cfg.Target.Database); err != nil {
		return nil, err
	}
	if cfg.Target.Username, err = a.promptStringWithDefault("Username", cfg.Target.Username); err != nil {
		return nil, err
	}
	if cfg.Target.Password, err = a.promptString("Password (leave blank for none)", false); err != nil {
		return nil, err
	}
	if cfg.Target.SSLMode, err = a.promptStringWithDefault("SSL mode", cfg.Target.SSLMode); err != nil {
		return nil, err
	}

	fmt.Fprintln(a.out, "\nTransfer options:")
	if cfg.Options.CreateSchema, err = a.promptYesNo("Drop and create the target schema?", false); err != nil {
		return nil, err
	}
	if !cfg.Options.CreateSchema {
		if cfg.Options.CreateTable, err = a.promptYesNo("Drop and create the tables?", false); err != nil {
			return nil, err
		}
	}
	if cfg.Options.TransferRows, err = a.promptYesNo("Transfer rows?", false); err != nil {
		return nil, err
	}
	sampleRows, err := a.promptInt("Rows per table (0 for all)", cfg.SampleRows())
	if err != nil {
		return nil, err
	}
	cfg.Transfer.SampleRows = &sampleRows
	if cfg.Transfer.ChunkSize, err = a.promptInt("Chunk size", cfg.Transfer.ChunkSize); err != nil {
		return nil, err
	}
	if cfg.Transfer.Threads, err = a.promptInt("Threads", cfg.Transfer.Threads); err != nil {
		return nil, err
	}
	if cfg.Output.DDLFile, err = a.promptString("DDL script file (leave blank for stdout)", false); err != nil {
		return nil, err
	}
	if cfg.Output.LogFile, err = a.promptString("Log file (leave blank for stdout)", false); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func (a *Application) promptString(label string, required bool) (string, error) {
	for {
		fmt.Fprintf(a.out, "%s: ", label)
		input, err := a.readLine()
		if err != nil {
			return "", err
		}
		if input == "" && required {
			fmt.Fprintln(a.out, "Please provide a value.")
			continue
		}
		return input, nil
	}
}

func (a *Application) promptYesNo(question string, defaultValue bool) (bool, error) {
	suffix := "(y/N)"
	if defaultValue {
		suffix = "(Y/n)"
	}

	for {
		fmt.Fprintf(a.out, "%s %s ", question, suffix)
		input, err := a.readLine()
		if err != nil {
			return false, err
		}

		if input == "" {
			return defaultValue, nil
		}

		switch strings.ToLower(input) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(a.out, "Please answer with y or n.")
		}
	}
}

func (a *Application) promptInt(question string, defaultValue int) (int, error) {
	for {
		fmt.Fprintf(a.out, "%s [%d]: ", question, defaultValue)
		input, err := a.readLine()
		if err != nil {
			return 0, err
		}

		if input == "" {
			return defaultValue, nil
		}

		value, err := strconv.Atoi(input)
		if err != nil || value < 0 {
			fmt.Fprintln(a.out, "Please enter a valid number.")
			continue
		}

		return value, nil
	}
}

func (a *Application) promptStringWithDefault(label, defaultValue string) (string, error) {
	for {
		if defaultValue != "" {
			fmt.Fprintf(a.out, "%s [%s]: ", label, defaultValue)
		} else {
			fmt.Fprintf(a.out, "%s: ", label)
		}

		input, err := a.readLine()
		if err != nil {
			return "", err
		}

		if input == "" {
			if defaultValue != "" {
				return defaultValue, nil
			}
			fmt.Fprintln(a.out, "Please provide a value.")
			continue
		}

		return input, nil
	}
}

func (a *Application) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *Application) selectProfile() (*config.Config, bool, error) {
	saved, err := a.profileManager.List("")
	if err != nil {
		return nil, false, err
	}

	if len(saved) == 0 {
		return nil, false, nil
	}

	for {
		fmt.Fprintln(a.out, "Saved configurations:")
		for i, profile := range saved {
			fmt.Fprintf(a.out, "  %d) %s (%s -> %s)\n", i+1, profile.Name, profile.Owner, profile.Target)
		}
		fmt.Fprintln(a.out, "  n) Create a new configuration")

		choice, err := a.promptString("Select a configuration (number) or 'n'", true)
		if err != nil {
			return nil, false, err
		}

		choice = strings.ToLower(strings.TrimSpace(choice))
		if choice == "n" || choice == "new" {
			return nil, false, nil
		}

		index, err := strconv.Atoi(choice)
		if err != nil || index < 1 || index > len(saved) {
			fmt.Fprintln(a.out, "Please choose a valid option.")
			continue
		}

		cfg, err := a.profileManager.Load(filepath.Base(saved[index-1].Path))
		if err != nil {
			fmt.Fprintf(a.out, "Failed to load %s: %v\n", saved[index-1].Name, err)
			continue
		}

		return cfg, true, nil
	}
}

func (a *Application) persistConfig(cfg *config.Config) error {
	save, err := a.promptYesNo("Save this configuration for future use?", true)
	if err != nil || !save {
		return err
	}

	defaultName := fmt.Sprintf("%s-%s_%s", strings.ToLower(cfg.Source.Owner), cfg.Target.Host, time.Now().Format("20060102_150405"))
	name, err := a.promptStringWithDefault("Configuration name", defaultName)
	if err != nil {
		return err
	}

	_, err = a.profileManager.Save(name, cfg)
	return err
}
