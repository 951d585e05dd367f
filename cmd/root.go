package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cigdemahmet27/rtsched/pkg/report"
	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/serve"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

var (
	inputFile     string
	algorithmName string
	outputFile    string
	showSummary   bool
	showTimeline  bool
	timelineLimit int
	showGantt     bool
	graspFile     string
	serveAddr     string
)

var rootCmd = &cobra.Command{
	Use:   "rtsched",
	Short: "Real-Time Scheduling Simulator",
	Long: `A discrete-event simulator for uniprocessor real-time task scheduling.

It reads a workload of periodic, sporadic and aperiodic tasks, simulates it
tick by tick under a chosen priority rule (RM, DM, EDF or LST) with optional
Polling or Deferrable aperiodic servers, and exports the resulting timeline.`,
	RunE:         runSimulation,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "input.txt", "Path to workload file (.txt or .yaml)")
	rootCmd.Flags().StringVarP(&algorithmName, "algorithm", "a", "", "Scheduling algorithm: rm, dm, edf, lst (prompts when empty)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "output.txt", "Path for the timeline export")
	rootCmd.Flags().BoolVarP(&showSummary, "summary", "s", true, "Show run summary")
	rootCmd.Flags().BoolVarP(&showTimeline, "timeline", "t", false, "Show detailed timeline of events")
	rootCmd.Flags().IntVarP(&timelineLimit, "timeline-limit", "l", 50, "Limit number of timeline events to display")
	rootCmd.Flags().BoolVar(&showGantt, "gantt", false, "Show ASCII schedule chart")
	rootCmd.Flags().StringVar(&graspFile, "grasp", "", "Also export a Grasp trace to this path")
	rootCmd.Flags().StringVar(&serveAddr, "serve", "", "Serve the timeline API on this address after the run")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ws, fileAlgorithm, err := loadWorkload(inputFile)
	if err != nil {
		return err
	}
	if ws.Empty() {
		return fmt.Errorf("no tasks found in %s", inputFile)
	}

	fmt.Println("========================================")
	fmt.Println("  Real-Time Scheduling Simulator")
	fmt.Println("========================================")
	fmt.Printf("Loaded workload from %s\n", inputFile)
	fmt.Printf("  - Periodic: %d\n", len(ws.Periodic))
	fmt.Printf("  - Aperiodic: %d\n", len(ws.Aperiodic))
	fmt.Printf("  - Server Policy: %s\n\n", ws.Policy)

	rule, err := chooseAlgorithm(fileAlgorithm)
	if err != nil {
		return err
	}
	fmt.Printf("Using Algorithm: %s\n\n", rule.Name())

	engine := sched.New(ws, rule)
	if engine.Capped() {
		fmt.Printf("Warning: hyperperiod capped at the safety limit of %s\n",
			report.FormatTicks(sched.HyperperiodCap))
	}
	fmt.Printf("Starting simulation. Hyperperiod: %s\n",
		report.FormatTicks(engine.Hyperperiod()))

	res := engine.Run()

	written, err := report.ExportTimeline(outputFile, res, ws)
	if err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", written)

	summary := report.Summarize(res, ws, rule.Name())
	if showSummary {
		fmt.Println(summary.Render())
	}
	if showGantt {
		fmt.Println(report.GenerateGantt(res, ws))
	}
	if showTimeline {
		fmt.Println(report.RenderTimeline(res, timelineLimit))
	}

	if graspFile != "" {
		if err := report.ExportGrasp(graspFile, res, ws); err != nil {
			return err
		}
		fmt.Printf("Grasp trace saved to %s\n", graspFile)
	}

	if serveAddr != "" {
		srv := serve.New(res, ws, summary)
		fmt.Printf("Serving timeline API on %s\n", serveAddr)
		return srv.ListenAndServe(serveAddr)
	}
	return nil
}

func loadWorkload(path string) (*workload.Workload, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return workload.LoadYAML(path)
	}
	ws, err := workload.ParseFile(path)
	return ws, "", err
}

// chooseAlgorithm resolves the --algorithm flag, a pin from a YAML workload,
// or failing both, the interactive 1-4 menu.
func chooseAlgorithm(fileAlgorithm string) (sched.Policy, error) {
	name := algorithmName
	if name == "" {
		name = fileAlgorithm
	}
	if name != "" {
		rule, ok := sched.PolicyByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown algorithm %q (want rm, dm, edf or lst)", name)
		}
		return rule, nil
	}

	fmt.Println("Select Scheduling Algorithm:")
	fmt.Println("  1. Rate Monotonic (RM)")
	fmt.Println("  2. Deadline Monotonic (DM)")
	fmt.Println("  3. Earliest Deadline First (EDF)")
	fmt.Println("  4. Least Slack Time (LST)")
	fmt.Print("\nEnter your choice (1-4): ")

	choice := 1
	if _, err := fmt.Fscanln(os.Stdin, &choice); err != nil {
		choice = 1
	}
	return sched.PolicyByChoice(choice), nil
}
