package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"folio/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		platform       string
		quoteCurrency  string
		segments       []string
		intervalStr    string
		listenAddr     string
		useHyperliquid bool
		confirm        bool
	)

	// defaults
	quoteCurrency = "USDT"
	intervalStr = "1m"
	listenAddr = ":8080"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your account tracking set up.\n"))

	// platform
	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// segments
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ACCOUNT SEGMENTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Which account segments should be valued each cycle?").
				Options(
					huh.NewOption("Spot wallet", "spot").Selected(true),
					huh.NewOption("Futures wallet", "futures"),
					huh.NewOption("Unified account", "unified"),
				).
				Value(&segments).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("select at least one segment")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// valuation currency
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: VALUATION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quote Currency").
				Description("Currency all balances are valued in (e.g. USDT)").
				Value(&quoteCurrency).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("quote currency cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Collect Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&intervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewConfirm().
				Title("Resolve unknown assets via Hyperliquid mids?").
				Description("Requires PRIVATE_KEY in the environment").
				Value(&useHyperliquid),
		),
	).Run()
	if err != nil {
		return err
	}

	// http listener
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: API"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP Listen Address").
				Description("Address of the scores/balance API (e.g. :8080)").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("FOLIO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nSegments: %s\nQuote: %s\nInterval: %s\nListen: %s\n",
		platform, strings.Join(segments, ", "), quoteCurrency, intervalStr, listenAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	interval, _ := time.ParseDuration(intervalStr)

	cfgTmp := config.ConfigTmp{
		Platform:        platform,
		QuoteCurrency:   quoteCurrency,
		Segments:        segments,
		CollectInterval: interval,
		ListenAddr:      listenAddr,
		UseHyperliquid:  useHyperliquid,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting collector...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}
