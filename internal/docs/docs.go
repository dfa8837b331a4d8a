// Package docs renders the Markdown reference of a service from its model.
package docs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/internal/constants"
	"github.com/norikmb/nifcloud-sdk-go/internal/fileutils"
	"github.com/norikmb/nifcloud-sdk-go/internal/model"
	"github.com/ubuntu/decorate"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spacesRe = regexp.MustCompile(`[ \t]*\n[ \t\n]*\n[ \t\n]*`)
)

// PathOf returns the folder of the NIFCLOUD API reference of a service.
func PathOf(service string) string {
	switch service {
	case "computing":
		return "cp"
	case "storage":
		return "object-storage-service"
	}
	return service
}

// URL returns the NIFCLOUD API reference page of an operation.
func URL(service, operation string) string {
	return fmt.Sprintf("%s/%s/%s.htm", constants.DocBaseURL, PathOf(service), operation)
}

// Documenter renders one service.
type Documenter struct {
	svc   *model.Service
	title cases.Caser
	log   *slog.Logger
}

type options struct {
	log *slog.Logger
}

// Options represents an optional function to override documenter default values.
type Options func(*options)

// WithLogger sets the logger of the documenter.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a documenter for svc.
func New(svc *model.Service, args ...Options) *Documenter {
	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	return &Documenter{
		svc:   svc,
		title: cases.Title(language.English),
		log:   opts.log,
	}
}

// Render returns the whole reference page.
func (d *Documenter) Render() string {
	var b strings.Builder
	meta := d.svc.API.Metadata

	name := meta.ServiceFullName
	if name == "" {
		name = d.title.String(d.svc.Name)
	}
	fmt.Fprintf(&b, "# %s\n\n", brand(name))
	if doc := cleanDoc(d.svc.API.Documentation); doc != "" {
		fmt.Fprintf(&b, "%s\n\n", doc)
	}
	fmt.Fprintf(&b, "- Service: `%s`\n- API version: `%s`\n- Protocol: `%s`\n\n", d.svc.Name, meta.APIVersion, meta.Protocol)

	b.WriteString("## Table of contents\n\n")
	for _, m := range d.svc.API.MethodNames() {
		fmt.Fprintf(&b, "- [%s](#%s)\n", m, m)
	}
	b.WriteString("\n## Client\n\n")
	for _, m := range d.svc.API.MethodNames() {
		op, _ := d.svc.API.Operation(m)
		b.WriteString(d.RenderOperation(m, op))
	}

	if names := d.svc.PaginatorNames(); len(names) > 0 {
		b.WriteString("## Paginators\n\n")
		for _, n := range names {
			b.WriteString(d.renderPaginator(n, d.svc.Paginators[n]))
		}
	}
	if names := d.svc.WaiterNames(); len(names) > 0 {
		b.WriteString("## Waiters\n\n")
		for _, n := range names {
			b.WriteString(d.renderWaiter(n, d.svc.Waiters[n]))
		}
	}
	return b.String()
}

// RenderOperation returns the section of one operation.
func (d *Documenter) RenderOperation(method string, op *model.Operation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### %s\n\n", method)
	if op.Deprecated {
		b.WriteString("> **Deprecated.**\n\n")
	}
	if doc := cleanDoc(op.Documentation); doc != "" {
		fmt.Fprintf(&b, "%s\n\n", doc)
	}
	fmt.Fprintf(&b, "See also: [NIFCLOUD API Documentation](%s)\n\n", URL(d.svc.Name, op.Name))

	b.WriteString("**Request Syntax**\n\n```go\n")
	fmt.Fprintf(&b, "out, err := client.Call(ctx, %q, %s)\n```\n\n", op.Name, syntax(op.Input, "", nil))

	if op.Input != nil && op.Input.Shape != nil && op.Input.Shape.Members.Len() > 0 {
		b.WriteString("**Parameters**\n\n")
		d.renderMembers(&b, op.Input.Shape, "")
		b.WriteString("\n")
	}

	if op.Output != nil && op.Output.Shape != nil && op.Output.Shape.Members.Len() > 0 {
		b.WriteString("**Response Syntax**\n\n```go\n")
		fmt.Fprintf(&b, "%s\n```\n\n", syntax(op.Output, "", nil))
		b.WriteString("**Response Structure**\n\n")
		d.renderMembers(&b, op.Output.Shape, "")
		b.WriteString("\n")
	} else {
		b.WriteString("**Returns**\n\nNone\n\n")
	}
	return b.String()
}

func (d *Documenter) renderMembers(b *strings.Builder, s *model.Shape, indent string) {
	for name, ref := range s.Members.All() {
		req := ""
		if s.IsRequired(name) {
			req = " **[REQUIRED]**"
		}
		fmt.Fprintf(b, "%s- **%s** (*%s*)%s", indent, name, typeName(ref), req)
		if doc := cleanDoc(firstNonEmpty(ref.Documentation, ref.Shape.Documentation)); doc != "" {
			fmt.Fprintf(b, " %s", strings.ReplaceAll(doc, "\n\n", " "))
		}
		b.WriteString("\n")
		if len(ref.Shape.Enum) > 0 {
			fmt.Fprintf(b, "%s  - Valid values: `%s`\n", indent, strings.Join(ref.Shape.Enum, "`, `"))
		}
		if len(indent) < 12 {
			if inner := innerStructure(ref); inner != nil {
				d.renderMembers(b, inner, indent+"  ")
			}
		}
	}
}

func (d *Documenter) renderPaginator(name string, p *model.Paginator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", name)
	fmt.Fprintf(&b, "`client.NewPaginator(%q, params, nifcloud.PaginateConfig{MaxItems: 0, PageSize: 0, StartingToken: \"\"})`\n\n", name)
	fmt.Fprintf(&b, "- Result keys: `%s`\n", strings.Join(p.ResultKey, "`, `"))
	fmt.Fprintf(&b, "- Input tokens: `%s`\n", strings.Join(p.InputToken, "`, `"))
	if p.LimitKey != "" {
		fmt.Fprintf(&b, "- Page size parameter: `%s`\n", p.LimitKey)
	}
	b.WriteString("\n")
	return b.String()
}

func (d *Documenter) renderWaiter(name string, w *model.Waiter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", name)
	if w.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", brand(w.Description))
	}
	fmt.Fprintf(&b, "Polls `%s` every %d seconds until a successful state is reached. An error is returned after %d failed checks.\n\n",
		w.Operation, w.Delay, w.MaxAttempts)
	b.WriteString("| Matcher | Argument | Expected | State |\n|---|---|---|---|\n")
	for _, a := range w.Acceptors {
		fmt.Fprintf(&b, "| %s | `%s` | `%v` | %s |\n", a.Matcher, a.Argument, a.Expected, d.title.String(a.State))
	}
	b.WriteString("\n")
	return b.String()
}

// WriteFile renders the service into dir/<service>.md and returns the file path.
func (d *Documenter) WriteFile(dir string) (path string, err error) {
	defer decorate.OnError(&err, "could not write documentation of %s", d.svc.Name)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	path = filepath.Join(dir, d.svc.Name+".md")
	if err := fileutils.AtomicWrite(path, []byte(d.Render())); err != nil {
		return "", err
	}
	d.log.Info("Wrote documentation", "service", d.svc.Name, "file", path)
	return path, nil
}

// cleanDoc turns model HTML into plain Markdown paragraphs with NIFCLOUD branding.
func cleanDoc(doc string) string {
	doc = strings.NewReplacer("</p>", "\n\n", "<br>", "\n", "<br/>", "\n", "<li>", "\n- ").Replace(doc)
	doc = tagRe.ReplaceAllString(doc, "")
	doc = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&amp;", "&").Replace(doc)
	doc = spacesRe.ReplaceAllString(doc, "\n\n")
	return brand(strings.TrimSpace(doc))
}

func brand(s string) string {
	return strings.ReplaceAll(s, "AWS", "NIFCLOUD")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
