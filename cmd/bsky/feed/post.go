// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package feed implements the app.bsky commands of the bsky CLI:
// posting, reading threads, profiles, and author feeds, and liking and
// following.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/richtext"
	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/xrpc"
)

// maxImages is the most images app.bsky.embed.images accepts.
const maxImages = 4

type postParams struct {
	cli.ClientFlags
	cli.JSONOutput
	ReplyTo  string   `flag:"reply-to" desc:"AT-URI of the post to reply to"`
	Images   []string `flag:"image" desc:"attach an image file (repeatable, up to 4)"`
	Alts     []string `flag:"alt" desc:"alt text for the image at the same position (repeatable)"`
	Langs    []string `flag:"lang" desc:"BCP-47 language of the text (repeatable)"`
	Markdown bool     `flag:"markdown" desc:"treat the text as markdown: [label](url) links, emphasis stripped"`
}

// PostCommand returns the "post" command.
func PostCommand() *cli.Command {
	var params postParams
	return &cli.Command{
		Name:    "post",
		Summary: "Publish a post",
		Description: `Publish a post from the logged-in account.

The text is the remaining arguments joined by spaces, or stdin when the
only argument is "-". Links, #hashtags, and @handle mentions in the text
become facets; mentions of handles that do not resolve stay plain text.
Images are uploaded first and embedded in order.`,
		Usage:  "bsky post <text...> [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Post some text",
				Command:     "bsky post hello from the terminal",
			},
			{
				Description: "Post markdown read from a file",
				Command:     "bsky post --markdown - < note.md",
			},
			{
				Description: "Reply with an image",
				Command:     "bsky post --reply-to at://did:plc:abc/app.bsky.feed.post/3kxyz --image cat.jpg --alt 'a cat' look",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			text, err := postText(args)
			if err != nil {
				return err
			}
			if len(params.Images) > maxImages {
				return cli.Validation("at most %d images can be attached, got %d", maxImages, len(params.Images))
			}
			if len(params.Alts) > len(params.Images) {
				return cli.Validation("%d --alt values given for %d images", len(params.Alts), len(params.Images))
			}
			var replyTo syntax.ATURI
			if params.ReplyTo != "" {
				if replyTo, err = syntax.ParseATURI(params.ReplyTo); err != nil {
					return cli.Validation("--reply-to: %w", err)
				}
			}

			connection, err := params.Connect(ctx, cli.SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()
			me, err := connection.Me()
			if err != nil {
				return err
			}

			body := richtext.Detect(text)
			if params.Markdown {
				body = richtext.Markdown(text)
			}
			if err := body.ResolveMentions(ctx, mentionResolver(connection)); err != nil {
				return cli.Classify(err)
			}
			post := lexicon.Post{Langs: params.Langs}
			body.Apply(&post)
			if !replyTo.IsZero() {
				if post.Reply, err = replyRef(ctx, connection.Client, replyTo); err != nil {
					return err
				}
			}
			if len(params.Images) > 0 {
				images, err := uploadImages(ctx, me, params.Images, params.Alts)
				if err != nil {
					return err
				}
				post.Embed = &lexicon.Embed{Images: &lexicon.Images{Images: images}}
			}

			ref, err := me.Post(ctx, post)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(ref); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, ref.URI)
			return nil
		},
	}
}

func postText(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", cli.Validation("reading post text: %w", err)
		}
		args = []string{strings.TrimRight(string(data), "\n")}
	}
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return "", cli.Validation("post text is required")
	}
	return text, nil
}

// mentionResolver resolves mention handles through the PDS, treating
// a handle the server rejects as not existing.
func mentionResolver(connection *cli.Connection) richtext.Resolver {
	return func(ctx context.Context, handle syntax.Handle) (syntax.DID, error) {
		did, err := connection.Client.ResolveHandle(ctx, handle)
		if xrpc.IsError(err, xrpc.ErrKindInvalidRequest) {
			connection.Logger.Debug("mention does not resolve", "handle", handle.String())
			return syntax.DID{}, nil
		}
		return did, err
	}
}

// replyRef builds the reply reference for a reply to parentURI. The
// thread root is the parent's own root when the parent is itself a
// reply.
func replyRef(ctx context.Context, client *atproto.Client, parentURI syntax.ATURI) (*lexicon.ReplyRef, error) {
	if parentURI.Collection() != lexicon.CollectionPost || parentURI.RecordKey().IsZero() {
		return nil, cli.Validation("--reply-to must address a %s record", lexicon.CollectionPost)
	}
	parent, err := atproto.GetRecord[lexicon.Post](ctx, client,
		parentURI.Authority(), parentURI.Collection(), parentURI.RecordKey().String())
	if err != nil {
		return nil, cli.Classify(err)
	}
	parentRef, err := parent.Ref().StrongRef()
	if err != nil {
		return nil, cli.Internal("reply parent: %w", err)
	}
	reply := &lexicon.ReplyRef{Root: parentRef, Parent: parentRef}
	if parent.Value.Reply != nil {
		reply.Root = parent.Value.Reply.Root
	}
	return reply, nil
}

func uploadImages(ctx context.Context, me *atproto.Me, paths, alts []string) ([]lexicon.Image, error) {
	images := make([]lexicon.Image, 0, len(paths))
	for index, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		mimeType := http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, cli.Validation("%s is %s, not an image", path, mimeType)
		}
		blob, err := me.UploadBlob(ctx, data, mimeType)
		if err != nil {
			return nil, cli.Classify(err)
		}
		image := lexicon.Image{Image: blob}
		if index < len(alts) {
			image.Alt = alts[index]
		}
		images = append(images, image)
	}
	return images, nil
}
