package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/postdesk"
	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
)

// postClient is the part of the API client push needs.
type postClient interface {
	editor.Saver
	GetBySlug(ctx context.Context, slug string) (content.Post, error)
}

type pushOptions struct {
	Title           string
	Slug            string
	Status          string
	MetaDescription string
	MetaKeywords    string
	FeaturedImage   string
	Markdown        bool
}

func pushCommand() *cobra.Command {
	var (
		opts    pushOptions
		baseURL string
		token   string
	)
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Create or update a post from an HTML or Markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ext := strings.ToLower(filepath.Ext(args[0]))
			if ext == ".md" || ext == ".markdown" {
				opts.Markdown = true
			}
			if token == "" {
				return errors.New("an API token is required (--token or POSTDESK_TOKEN)")
			}
			client := editor.NewClient(baseURL, token)
			p, err := push(cmd.Context(), client, opts, string(src))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", p.ID, p.Path(), p.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&baseURL, "url", postdesk.EnvOr("POSTDESK_URL", "http://localhost:3000"), "site base URL")
	f.StringVar(&token, "token", os.Getenv("POSTDESK_TOKEN"), "API token minted by the token command")
	f.StringVar(&opts.Title, "title", "", "post title (required for new posts)")
	f.StringVar(&opts.Slug, "slug", "", "post slug (derived from the title when empty)")
	f.StringVar(&opts.Status, "status", "", "draft or published")
	f.StringVar(&opts.MetaDescription, "description", "", "meta description")
	f.StringVar(&opts.MetaKeywords, "keywords", "", "comma-separated meta keywords")
	f.StringVar(&opts.FeaturedImage, "image", "", "featured image URL")
	f.BoolVar(&opts.Markdown, "markdown", false, "treat the file as Markdown")
	return cmd
}

// push loads the post with the target slug into an editor document, or
// starts a new one, replaces its content with body and saves it.
func push(ctx context.Context, c postClient, opts pushOptions, body string) (content.Post, error) {
	slug := opts.Slug
	if slug == "" {
		slug = content.Slugify(opts.Title)
	}
	if slug == "" {
		return content.Post{}, errors.New("--title or --slug is required")
	}

	var doc *editor.Document
	existing, err := c.GetBySlug(ctx, slug)
	var apiErr *editor.APIError
	switch {
	case err == nil:
		if doc, err = editor.Open(existing); err != nil {
			return content.Post{}, err
		}
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		if opts.Title == "" {
			return content.Post{}, errors.New("--title is required for a new post")
		}
		doc = editor.New()
		if opts.Slug != "" {
			if err := doc.SetSlug(opts.Slug); err != nil {
				return content.Post{}, err
			}
		}
	default:
		return content.Post{}, err
	}

	steps := []func() error{}
	if opts.Title != "" {
		steps = append(steps, func() error { return doc.SetTitle(opts.Title) })
	}
	if opts.MetaDescription != "" {
		steps = append(steps, func() error { return doc.SetMetaDescription(opts.MetaDescription) })
	}
	if opts.MetaKeywords != "" {
		steps = append(steps, func() error { return doc.SetMetaKeywords(opts.MetaKeywords) })
	}
	if opts.FeaturedImage != "" {
		steps = append(steps, func() error { return doc.SetFeaturedImage(opts.FeaturedImage) })
	}
	if opts.Status != "" {
		steps = append(steps, func() error { return doc.SetStatus(content.Status(opts.Status)) })
	}
	if opts.Markdown {
		body = editor.MarkdownToHTML(body)
	}
	doc.ShowRaw()
	steps = append(steps, func() error { return doc.EditRaw(body) })

	for _, step := range steps {
		if err := step(); err != nil {
			return content.Post{}, err
		}
	}
	return doc.Save(ctx, c)
}
