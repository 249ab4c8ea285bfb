package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new StaticGo project",
		Long: `Create a new StaticGo project with the specified name.

The scaffold contains a staticgo.json, a pages/ tree with a root page,
layout, and stylesheet, and an empty public/ directory for assets.

Examples:
  staticgo init my-site`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0])
		},
	}

	return cmd
}

func runInit(name string) error {
	printBanner()
	fmt.Println("  Creating a new StaticGo project...")
	fmt.Println()

	if !isValidProjectName(name) {
		return errors.New("E004").
			WithDetail("Project name must not contain spaces or path separators")
	}

	projectDir, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(projectDir); !os.IsNotExist(err) {
		return errors.New("E004").
			WithDetail("Directory '" + name + "' already exists")
	}

	info("Creating project directory...")
	dirs := []string{
		projectDir,
		filepath.Join(projectDir, "pages"),
		filepath.Join(projectDir, "public"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	info("Writing starter pages...")
	files := map[string]string{
		"pages/index.html":  starterIndex(name),
		"pages/layout.html": starterLayout,
		"pages/style.css":   starterStyle,
	}
	for rel, content := range files {
		path := filepath.Join(projectDir, filepath.FromSlash(rel))
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			os.RemoveAll(projectDir)
			return err
		}
	}

	info("Writing staticgo.json...")
	cfg, err := config.Load(projectDir)
	if err != nil {
		os.RemoveAll(projectDir)
		return err
	}
	cfg.Name = name
	if err := cfg.Save(); err != nil {
		os.RemoveAll(projectDir)
		return err
	}

	fmt.Println()
	success("Created %s/", name)
	fmt.Println()
	fmt.Println("  To get started:")
	fmt.Println()
	fmt.Printf("    cd %s\n", name)
	fmt.Println("    staticgo dev")
	fmt.Println()
	fmt.Printf("  Your site will be running at http://%s:%d\n", config.DefaultHost, config.DefaultPort)
	fmt.Println()

	return nil
}

func isValidProjectName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == ' ' || r == '/' || r == '\\' {
			return false
		}
		if i == 0 && r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

func starterIndex(name string) string {
	return fmt.Sprintf(`<h1>%s</h1>
<p>Edit <code>pages/index.html</code> and save. The browser reloads on its own.</p>
`, name)
}

const starterLayout = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  {{ .Styles }}
</head>
<body>
  <main class="page">
    {{ .Content }}
  </main>
</body>
</html>
`

const starterStyle = `body {
  font-family: system-ui, sans-serif;
  margin: 0;
}

.page {
  max-width: 42rem;
  margin: 4rem auto;
  padding: 0 1rem;
}
`
