package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajsharma/dom_tail/internal/control"
	"github.com/ajsharma/dom_tail/internal/redact"
)

// Control command variables.
var (
	controlPort    string
	controlTimeout time.Duration
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control the browser via CDP commands",
	Long: `Send one-shot commands to the first tab of a running Chrome.
Requires Chrome to be running with remote debugging enabled.

Example:
  dom_tail control navigate --url https://example.com
  dom_tail control click --selector "button#submit"
  dom_tail control html --selector "main"
  dom_tail control snapshot`,
}

// withController connects, runs fn and disconnects.
func withController(fn func(*control.Controller) error) error {
	ctrl, err := control.NewController(controlPort)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer ctrl.Close()
	ctrl.SetTimeout(controlTimeout)
	return fn(ctrl)
}

// requireFlags returns the values of string flags that must be set.
func requireFlags(cmd *cobra.Command, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		v, _ := cmd.Flags().GetString(name)
		if v == "" {
			return nil, fmt.Errorf("--%s is required", name)
		}
		values[i] = v
	}
	return values, nil
}

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Navigate to a URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "url")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			if err := c.Navigate(v[0]); err != nil {
				return fmt.Errorf("navigate failed: %w", err)
			}
			fmt.Printf("Navigated to: %s\n", v[0])
			return nil
		})
	},
}

// historyCmd builds the reload, back and forward commands.
func historyCmd(use, short, done string, action func(*control.Controller) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(func(c *control.Controller) error {
				if err := action(c); err != nil {
					return fmt.Errorf("%s failed: %w", use, err)
				}
				fmt.Println(done)
				return nil
			})
		},
	}
}

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Click an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "selector")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			if err := c.Click(v[0]); err != nil {
				return fmt.Errorf("click failed: %w", err)
			}
			fmt.Printf("Clicked: %s\n", v[0])
			return nil
		})
	},
}

var typeCmd = &cobra.Command{
	Use:   "type",
	Short: "Type text into an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "selector", "text")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			if err := c.Type(v[0], v[1]); err != nil {
				return fmt.Errorf("type failed: %w", err)
			}
			fmt.Printf("Typed into %s\n", v[0])
			return nil
		})
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate JavaScript",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "js")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			result, err := c.Evaluate(v[0])
			if err != nil {
				return fmt.Errorf("eval failed: %w", err)
			}
			fmt.Println(result)
			return nil
		})
	},
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a screenshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "screenshot.png"
		}
		return withController(func(c *control.Controller) error {
			data, err := c.Screenshot()
			if err != nil {
				return fmt.Errorf("screenshot failed: %w", err)
			}
			if output == "-" {
				fmt.Println(base64.StdEncoding.EncodeToString(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Printf("Screenshot saved to: %s\n", output)
			return nil
		})
	},
}

var titleCmd = &cobra.Command{
	Use:   "title",
	Short: "Get page title",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(c *control.Controller) error {
			title, err := c.GetTitle()
			if err != nil {
				return fmt.Errorf("failed to get title: %w", err)
			}
			fmt.Println(title)
			return nil
		})
	},
}

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Get current URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(c *control.Controller) error {
			url, err := c.GetURL()
			if err != nil {
				return fmt.Errorf("failed to get URL: %w", err)
			}
			fmt.Println(url)
			return nil
		})
	},
}

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Get text content of an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "selector")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			text, err := c.GetText(v[0])
			if err != nil {
				return fmt.Errorf("failed to get text: %w", err)
			}
			fmt.Println(text)
			return nil
		})
	},
}

var attrCmd = &cobra.Command{
	Use:   "attr",
	Short: "Get an attribute of an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "selector", "name")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			value, err := c.GetAttribute(v[0], v[1])
			if err != nil {
				return fmt.Errorf("failed to get attribute: %w", err)
			}
			fmt.Println(value)
			return nil
		})
	},
}

var htmlCmd = &cobra.Command{
	Use:   "html",
	Short: "Get the outer HTML of an element",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := requireFlags(cmd, "selector")
		if err != nil {
			return err
		}
		return withController(func(c *control.Controller) error {
			html, err := c.GetHTML(v[0])
			if err != nil {
				return fmt.Errorf("failed to get HTML: %w", err)
			}
			fmt.Println(html)
			return nil
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the mirrored DOM tree of the page",
	RunE: func(cmd *cobra.Command, args []string) error {
		noRedact, _ := cmd.Flags().GetBool("no-redact")
		return withController(func(c *control.Controller) error {
			s, err := c.Snapshot()
			if err != nil {
				return fmt.Errorf("snapshot failed: %w", err)
			}
			return control.WriteTree(os.Stdout, s.Document(), redact.New(!noRedact))
		})
	},
}

func init() {
	controlCmd.PersistentFlags().StringVarP(&controlPort, "port", "p", "9222", "Chrome remote debugging port")
	controlCmd.PersistentFlags().DurationVarP(&controlTimeout, "timeout", "t", 30*time.Second, "Command timeout")

	navigateCmd.Flags().String("url", "", "URL to navigate to")
	clickCmd.Flags().String("selector", "", "CSS selector of element to click")
	typeCmd.Flags().String("selector", "", "CSS selector of element")
	typeCmd.Flags().String("text", "", "Text to type")
	evalCmd.Flags().String("js", "", "JavaScript to evaluate")
	screenshotCmd.Flags().StringP("output", "o", "screenshot.png", "Output file (use - for base64 stdout)")
	textCmd.Flags().String("selector", "", "CSS selector of element")
	attrCmd.Flags().String("selector", "", "CSS selector of element")
	attrCmd.Flags().String("name", "", "Attribute name")
	htmlCmd.Flags().String("selector", "", "CSS selector of element")
	snapshotCmd.Flags().Bool("no-redact", false, "Print secrets unredacted")

	controlCmd.AddCommand(
		navigateCmd,
		historyCmd("reload", "Reload the page", "Reloaded", (*control.Controller).Reload),
		historyCmd("back", "Navigate back in history", "Navigated back", (*control.Controller).Back),
		historyCmd("forward", "Navigate forward in history", "Navigated forward", (*control.Controller).Forward),
		clickCmd,
		typeCmd,
		evalCmd,
		screenshotCmd,
		titleCmd,
		urlCmd,
		textCmd,
		attrCmd,
		htmlCmd,
		snapshotCmd,
	)
}
