package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/gomarket/internal/domain"
	apperrors "github.com/utafrali/gomarket/pkg/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // operation failed (storage, decoding)
	ExitCommandError = 2 // bad flags or arguments
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not
// ExitErrors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope for json and yaml output.
type Response struct {
	Status string     `json:"status" yaml:"status"`
	Data   any        `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// CartView is the printable cart.
type CartView struct {
	Products  []LineItemView `json:"products" yaml:"products"`
	ItemCount int            `json:"item_count" yaml:"item_count"`
	Total     float64        `json:"total" yaml:"total"`
}

// LineItemView is one printable line item.
type LineItemView struct {
	ID       string  `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	ImageURL string  `json:"image_url" yaml:"image_url"`
	Price    float64 `json:"price" yaml:"price"`
	Quantity int     `json:"quantity" yaml:"quantity"`
}

// NewCartView converts c for printing.
func NewCartView(c domain.Cart) CartView {
	items := make([]LineItemView, len(c))
	for i, p := range c {
		items[i] = LineItemView(p)
	}
	return CartView{Products: items, ItemCount: c.ItemCount(), Total: c.Total()}
}

// OutputFormatter writes command results as text, json or yaml.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Cart prints a cart.
func (f *OutputFormatter) Cart(c domain.Cart) error {
	view := NewCartView(c)
	switch f.Format {
	case FormatJSON:
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: view})
	case FormatYAML:
		return f.yaml(Response{Status: "ok", Data: view})
	}

	if len(view.Products) == 0 {
		_, err := fmt.Fprintln(f.Writer, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tQTY")
	for _, p := range view.Products {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", p.ID, p.Title, p.Price, p.Quantity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "items: %d  total: %.2f\n", view.ItemCount, view.Total)
	return err
}

// Error prints err. Application errors keep their code.
func (f *OutputFormatter) Error(err error) error {
	body := ErrorBody{Code: "ERROR", Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
	}

	switch f.Format {
	case FormatJSON:
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: &body})
	case FormatYAML:
		return f.yaml(Response{Status: "error", Error: &body})
	}
	_, werr := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", body.Code, body.Message)
	return werr
}

func (f *OutputFormatter) yaml(v any) error {
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
