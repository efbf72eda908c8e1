package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/aicertify/aicertify-go/src/contract"
	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/pipeline"
	"github.com/aicertify/aicertify-go/src/policy/engine"
	"github.com/aicertify/aicertify-go/src/policy/loader"
)

var (
	flagContractFile string
	flagPolicyRoot   string
	flagOutputDir    string
	flagFormat       string
	flagTimeout      time.Duration
)

func init() {
	for _, cmd := range []*cobra.Command{evalPolicyCmd, evalFolderCmd, evalAllCmd} {
		cmd.Flags().StringVar(&flagContractFile, "contract", "", "path to a JSON-encoded contract (required)")
		cmd.Flags().StringVar(&flagPolicyRoot, "policy-root", "policies", "root directory of the policy bundle")
		cmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "directory to write the report to (default: stdout only)")
		cmd.Flags().StringVar(&flagFormat, "format", "markdown", "report format: json, markdown, pdf, html")
		cmd.Flags().DurationVar(&flagTimeout, "timeout", 120*time.Second, "overall evaluation timeout")
		cmd.MarkFlagRequired("contract")
		rootCmd.AddCommand(cmd)
	}
}

var evalPolicyCmd = &cobra.Command{
	Use:   "eval-policy [selector]",
	Short: "Evaluate a contract against a single matched policy folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleEval(args[0])
	},
}

var evalFolderCmd = &cobra.Command{
	Use:   "eval-folder [selector]",
	Short: "Evaluate a contract against the best-matching folder under a category selector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleEval(args[0])
	},
}

var evalAllCmd = &cobra.Command{
	Use:   "eval-all",
	Short: "Evaluate a contract against every indexed policy folder in the policy root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvalAll()
	},
}

func setup() (*contract.Contract, *pipeline.Pipeline, error) {
	c, err := loadContract(flagContractFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load contract: %w", err)
	}

	idx, err := loader.Load(flagPolicyRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("load policy bundle: %w", err)
	}

	engineCfg := engine.FromEnv()
	engineCfg.PolicyRoot = flagPolicyRoot
	driver, driverErr := engine.New(engineCfg)

	var eng pipeline.Engine
	if driverErr != nil {
		color.Yellow("policy engine unavailable, phase-2 will report an engine error: %v", driverErr)
	} else {
		eng = driver
	}

	p := pipeline.New(idx, eng)
	p.Timeout = flagTimeout
	return c, p, nil
}

func runSingleEval(selector string) error {
	c, p, err := setup()
	if err != nil {
		return err
	}

	bar := newSpinner("evaluating")
	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	result, err := p.Evaluate(ctx, c, selector, evalresult.Format(flagFormat), flagOutputDir)
	stopSpinner(bar)

	if err != nil {
		color.Red("evaluation failed: %v", err)
		return err
	}

	printVerdict(c.ApplicationName, result.OverallCompliant)
	printReport(result.ReportPath, result.Report.Content)

	if !result.OverallCompliant {
		os.Exit(exitNonCompliant)
	}
	return nil
}

func runEvalAll() error {
	c, p, err := setup()
	if err != nil {
		return err
	}

	folders := p.Loader.FindMatchingFolders("")
	if len(folders) == 0 {
		return fmt.Errorf("no policy folders indexed under %s", flagPolicyRoot)
	}

	bar := newSpinner(fmt.Sprintf("evaluating %d folders", len(folders)))
	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	allCompliant := true
	for _, folder := range folders {
		result, err := p.Evaluate(ctx, c, folder, evalresult.Format(flagFormat), flagOutputDir)
		if err != nil {
			color.Red("folder %s: evaluation failed: %v", folder, err)
			allCompliant = false
			continue
		}
		if !result.OverallCompliant {
			allCompliant = false
		}
		fmt.Printf("  %s: %s\n", folder, verdictLabel(result.OverallCompliant))
	}
	stopSpinner(bar)

	printVerdict(c.ApplicationName, allCompliant)
	if !allCompliant {
		os.Exit(exitNonCompliant)
	}
	return nil
}

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Padding(0, 1)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")).Padding(0, 1)
)

func verdictLabel(compliant bool) string {
	if compliant {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}

func printVerdict(applicationName string, compliant bool) {
	if compliant {
		fmt.Println(passStyle.Render(fmt.Sprintf("PASS — %s is compliant", applicationName)))
	} else {
		fmt.Println(failStyle.Render(fmt.Sprintf("FAIL — %s is not compliant", applicationName)))
	}
}

func printReport(path string, content []byte) {
	if path != "" {
		fmt.Printf("report written to %s\n", path)
		return
	}
	fmt.Println(string(content))
}

func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1, progressbar.OptionSetDescription(description), progressbar.OptionSpinnerType(14))
}

func stopSpinner(bar *progressbar.ProgressBar) {
	bar.Finish()
	fmt.Println()
}

func loadContract(path string) (*contract.Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c contract.Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse contract json: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
