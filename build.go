//go:build ignore

// build.go - loanrisk build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, sampler, trainer, download, test, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const versionPkg = "loanrisk/pkg/contracts"

var (
	tools   = []string{"sampler", "trainer", "download"}
	distDir = "dist"

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	start := time.Now()
	switch *target {
	case "all":
		for _, t := range tools {
			buildTool(t, *verbose)
		}
	case "sampler", "trainer", "download":
		buildTool(*target, *verbose)
	case "test":
		run(*verbose, "go", "test", "./...")
	case "clean":
		printInfo("Removing " + distDir)
		if err := os.RemoveAll(distDir); err != nil {
			printError(err.Error())
			os.Exit(1)
		}
	default:
		fmt.Println("Targets: all, sampler, trainer, download, test, clean")
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Done in %s", time.Since(start).Round(time.Millisecond)))
}

func buildTool(name string, verbose bool) {
	printInfo("Building " + name + "...")

	out := filepath.Join(distDir, name)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	ldflags := fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		versionPkg, time.Now().UTC().Format(time.RFC3339), versionPkg, gitCommit())

	run(verbose, "go", "build", "-ldflags", ldflags, "-o", out, "./cmd/"+name)

	if info, err := os.Stat(out); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func run(verbose bool, name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("Running: %s %s\n", name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("%s %s failed: %v", name, args[0], err))
		os.Exit(1)
	}
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}
