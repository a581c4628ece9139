package stages

import (
	"context"
	"regexp"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
	"reconforge/pkg/validators"
)

// MergeSubdomains builds merge_subdomains: unions passive.txt and brute.txt
// (brute.txt may be absent if wordlist_enum was skipped), lowercases,
// FQDN-validates, and applies the operator's include/exclude scope filters.
func MergeSubdomains(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "merge_subdomains",
		DependsOn: []string{"passive_enum"},
		// wordlist_enum legitimately self-skips under --passive-only or with
		// no wordlist configured; a soft dependency lets that skip through
		// instead of cascading a skip onto merge_subdomains and everything
		// downstream of it.
		SoftDependsOn: []string{"wordlist_enum"},
		Run: func(ctx context.Context, run *models.Run) error {
			passive, err := readLinesIfExists(c, "subdomains", "passive.txt")
			if err != nil {
				return err
			}
			brute, err := readLinesIfExists(c, "subdomains", "brute.txt")
			if err != nil {
				return err
			}

			merged := unionSorted(passive, brute)
			filtered, err := applyScope(merged, c.Config.Include, c.Config.Exclude)
			if err != nil {
				return err
			}

			valid := make([]string, 0, len(filtered))
			for _, host := range filtered {
				if fqdn, err := validators.ValidateTargetFQDN(host); err == nil {
					valid = append(valid, fqdn)
				}
			}
			valid = unionSorted(valid)

			art, err := c.Artifacts.Write("subdomains", "all.txt", linesToBytes(valid), models.ContentTextLines)
			if err != nil {
				return err
			}
			run.Stage("merge_subdomains").AddOutput(art.ID)
			return nil
		},
	}
}

func readLinesIfExists(c *Context, stage, name string) ([]string, error) {
	if !c.Artifacts.Exists(stage, name) {
		return nil, nil
	}
	art := models.Artifact{Path: stage + "/" + name}
	b, err := c.Artifacts.Read(art)
	if err != nil {
		return nil, err
	}
	return splitLines(b), nil
}

func applyScope(hosts []string, include, exclude string) ([]string, error) {
	var incRe, excRe *regexp.Regexp
	var err error
	if include != "" {
		if incRe, err = regexp.Compile(include); err != nil {
			return nil, err
		}
	}
	if exclude != "" {
		if excRe, err = regexp.Compile(exclude); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if incRe != nil && !incRe.MatchString(h) {
			continue
		}
		if excRe != nil && excRe.MatchString(h) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}
