package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wumo-util/http-stack/client"
)

var errFormAndData = errors.New("--form and --data are mutually exclusive")

// printReply writes the body, preceded by the status when showCode is set.
// Without showCode a non-2xx status is an error.
func (a *app) printReply(code int, body string, showCode bool) error {
	if showCode {
		fmt.Fprintln(a.stdout, code)
		fmt.Fprint(a.stdout, body)
		return nil
	}

	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return &client.UnexpectedStatusError{StatusCode: code, Body: body}
	}
	fmt.Fprint(a.stdout, body)

	return nil
}

func (a *app) getCmd() *cobra.Command {
	var showCode bool

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Send a GET request and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := a.header()
			if err != nil {
				return err
			}

			return a.withClient(cmd, func(ctx context.Context, c *client.Client) error {
				code, body, err := c.GetCode(ctx, args[0], header)
				if err != nil {
					return err
				}
				return a.printReply(code, body, showCode)
			})
		},
	}
	cmd.Flags().BoolVar(&showCode, "code", false, "print the status code first and accept any status")

	return cmd
}

func (a *app) headCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "head URL",
		Short: "Send a HEAD request and print the response headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := a.header()
			if err != nil {
				return err
			}

			return a.withClient(cmd, func(ctx context.Context, c *client.Client) error {
				got, err := c.Head(ctx, args[0], header)
				if err != nil {
					return err
				}

				for _, name := range slices.Sorted(maps.Keys(got)) {
					for _, v := range got[name] {
						fmt.Fprintf(a.stdout, "%s: %s\n", name, v)
					}
				}
				return nil
			})
		},
	}
}

func (a *app) postCmd() *cobra.Command {
	var (
		showCode  bool
		data      string
		mediaType string
		form      []string
	)

	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Send a POST request with a raw or form-encoded body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(form) > 0 && cmd.Flags().Changed("data") {
				return errFormAndData
			}

			header, err := a.header()
			if err != nil {
				return err
			}

			values := url.Values{}
			for _, kv := range form {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("form field must look like key=value: %q", kv)
				}
				values.Add(k, v)
			}

			return a.withClient(cmd, func(ctx context.Context, c *client.Client) error {
				var (
					code int
					body string
				)
				if len(form) > 0 {
					code, body, err = c.PostFormCode(ctx, args[0], header, values)
				} else {
					code, body, err = c.PostCode(ctx, args[0], header, data, mediaType)
				}
				if err != nil {
					return err
				}
				return a.printReply(code, body, showCode)
			})
		},
	}
	cmd.Flags().BoolVar(&showCode, "code", false, "print the status code first and accept any status")
	cmd.Flags().StringVarP(&data, "data", "d", "", "raw request body")
	cmd.Flags().StringVarP(&mediaType, "type", "t", "text/plain; charset=utf-8", "media type of --data")
	cmd.Flags().StringArrayVarP(&form, "form", "F", nil, "form field key=value, repeatable")

	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var showCode bool

	cmd := &cobra.Command{
		Use:   "delete URL",
		Short: "Send a DELETE request and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := a.header()
			if err != nil {
				return err
			}

			return a.withClient(cmd, func(ctx context.Context, c *client.Client) error {
				code, body, err := c.DeleteCode(ctx, args[0], header)
				if err != nil {
					return err
				}
				return a.printReply(code, body, showCode)
			})
		},
	}
	cmd.Flags().BoolVar(&showCode, "code", false, "print the status code first and accept any status")

	return cmd
}
