package stages

import (
	"context"
	"fmt"

	"reconforge/internal/files"
	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// WordlistEnum builds the wordlist_enum stage: ffuf DNS brute-forcing when
// installed, falling back to the built-in miekg/dns resolver otherwise.
// The whole stage is skipped under --passive-only, per the catalog.
func WordlistEnum(c *Context, bruteResolver BruteResolver) pipeline.Stage {
	return pipeline.Stage{
		Name: "wordlist_enum",
		Run: func(ctx context.Context, run *models.Run) error {
			if c.Config.PassiveOnly {
				run.Stage("wordlist_enum").Transition(models.StageSkipped, "--passive-only excludes active stages")
				return nil
			}
			if c.Config.Wordlist == "" {
				run.Stage("wordlist_enum").Transition(models.StageSkipped, "no wordlist configured")
				return nil
			}

			n, err := files.CountLines(c.Config.Wordlist)
			if err != nil {
				return fmt.Errorf("wordlist_enum: read wordlist: %w", err)
			}
			c.Log.WithField("words", n).Info("starting wordlist brute force")

			target := run.Target.FQDN
			var found []string

			if _, lookErr := c.Registry.Locate("ffuf"); lookErr == nil {
				args := []string{
					"-w", c.Config.Wordlist,
					"-u", "https://FUZZ." + target,
					"-mc", "all", "-of", "json", "-s",
				}
				res, err := c.invoke(ctx, "ffuf", target, args, c.Config.StageTimeout("wordlist_enum", 0))
				if err != nil {
					c.Log.WithError(err).Warn("ffuf unavailable, falling back to built-in resolver")
				} else if res.Succeeded() {
					found = splitLines(res.Stdout)
				}
			}

			if len(found) == 0 {
				words, err := files.FileLinesToSlice(c.Config.Wordlist)
				if err != nil {
					return fmt.Errorf("wordlist_enum: %w", err)
				}
				found = bruteResolver.Resolve(ctx, target, words)
			}

			art, err := c.Artifacts.Write("subdomains", "brute.txt", linesToBytes(unionSorted(found)), models.ContentTextLines)
			if err != nil {
				return err
			}
			run.Stage("wordlist_enum").AddOutput(art.ID)
			return nil
		},
	}
}

// BruteResolver resolves candidate "<word>.<target>" hosts directly,
// independent of any external tool — the built-in fallback named in the
// catalog.
type BruteResolver interface {
	Resolve(ctx context.Context, target string, words []string) []string
}
