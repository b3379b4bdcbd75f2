package greengrass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/Masterminds/semver/v3"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/greengrassv2"

	"github.com/imamik/edgeforge/internal/deployment"
	"github.com/imamik/edgeforge/internal/platform/awserr"
	"github.com/imamik/edgeforge/internal/util/retry"
)

// RecipeFormatVersion is the recipe schema used for published components.
const RecipeFormatVersion = "2020-01-25"

// initialVersion stands in for a component that was never registered.
const initialVersion = "0.0.0"

var errComponentNotFound = errors.New("component not found")

// latest scans the private components of the account for name.
func (c *Client) latest(ctx context.Context, name string) (string, error) {
	paginator := greengrassv2.NewListComponentsPaginator(c.api, &greengrassv2.ListComponentsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", awserr.Classify(fmt.Errorf("failed to list components: %w", err))
		}
		for _, component := range page.Components {
			if aws.ToString(component.ComponentName) != name || component.LatestVersion == nil {
				continue
			}
			return aws.ToString(component.LatestVersion.ComponentVersion), nil
		}
	}
	return "", errComponentNotFound
}

// NextVersion returns the patch-bumped successor of the latest version of
// name. A component that does not exist yet starts at 0.0.1.
func (c *Client) NextVersion(ctx context.Context, name string) (deployment.ComponentVersion, error) {
	current, err := c.latest(ctx, name)
	if errors.Is(err, errComponentNotFound) {
		current = initialVersion
	} else if err != nil {
		return deployment.ComponentVersion{}, err
	}

	next, err := bumpPatch(current)
	if err != nil {
		return deployment.ComponentVersion{}, retry.Fatal(fmt.Errorf("component %s: %w", name, err))
	}
	return deployment.ComponentVersion{Name: name, Version: next}, nil
}

// LatestVersion returns the newest registered version of name. Unlike
// NextVersion it does not fall back to 0.0.0: a component with no version
// cannot be deployed.
func (c *Client) LatestVersion(ctx context.Context, name string) (deployment.ComponentVersion, error) {
	current, err := c.latest(ctx, name)
	if errors.Is(err, errComponentNotFound) {
		return deployment.ComponentVersion{}, retry.Fatal(fmt.Errorf("component %s has no registered version", name))
	}
	if err != nil {
		return deployment.ComponentVersion{}, err
	}
	return deployment.ComponentVersion{Name: name, Version: current}, nil
}

// bumpPatch increments the patch number of a MAJOR.MINOR.PATCH version.
// Pre-release and build suffixes are rejected rather than guessed at.
func bumpPatch(version string) (string, error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return "", fmt.Errorf("cannot bump version %q with a pre-release or build suffix", version)
	}
	return v.IncPatch().String(), nil
}

type recipe struct {
	RecipeFormatVersion    string              `json:"RecipeFormatVersion"`
	ComponentName          string              `json:"ComponentName"`
	ComponentVersion       string              `json:"ComponentVersion"`
	ComponentDescription   string              `json:"ComponentDescription,omitempty"`
	ComponentPublisher     string              `json:"ComponentPublisher,omitempty"`
	ComponentConfiguration recipeConfiguration `json:"ComponentConfiguration"`
	Manifests              []recipeManifest    `json:"Manifests"`
}

type recipeConfiguration struct {
	DefaultConfiguration map[string]string `json:"DefaultConfiguration"`
}

type recipeManifest struct {
	Platform  map[string]string          `json:"Platform"`
	Lifecycle map[string]recipeLifecycle `json:"Lifecycle"`
	Artifacts []recipeArtifact           `json:"Artifacts"`
}

type recipeLifecycle struct {
	Script string `json:"script"`
}

type recipeArtifact struct {
	URI string `json:"URI"`
}

// Recipe renders the inline recipe of a model component. The install step
// unpacks the archive into the configured model path.
func Recipe(req deployment.PublishRequest) ([]byte, error) {
	archive := path.Base(req.ArtifactURI)
	r := recipe{
		RecipeFormatVersion:  RecipeFormatVersion,
		ComponentName:        req.Component.Name,
		ComponentVersion:     req.Component.Version,
		ComponentDescription: "Packaged edge model " + archive,
		ComponentPublisher:   "edgeforge",
		ComponentConfiguration: recipeConfiguration{
			DefaultConfiguration: map[string]string{"ModelPath": req.ModelPath},
		},
		Manifests: []recipeManifest{{
			Platform: map[string]string{"os": "linux"},
			Lifecycle: map[string]recipeLifecycle{
				"install": {Script: fmt.Sprintf("tar xf {artifacts:path}/%s -C {configuration:/ModelPath}", archive)},
			},
			Artifacts: []recipeArtifact{{URI: req.ArtifactURI}},
		}},
	}
	return json.Marshal(r)
}

// Publish registers a model component version from an inline recipe.
func (c *Client) Publish(ctx context.Context, req deployment.PublishRequest) (deployment.PublishedComponent, error) {
	doc, err := Recipe(req)
	if err != nil {
		return deployment.PublishedComponent{}, retry.Fatal(fmt.Errorf("failed to render recipe: %w", err))
	}

	out, err := c.api.CreateComponentVersion(ctx, &greengrassv2.CreateComponentVersionInput{
		InlineRecipe: doc,
		Tags:         req.Tags,
	})
	if err != nil {
		if awserr.IsConflict(err) {
			return deployment.PublishedComponent{}, fmt.Errorf("component %s: %w", req.Component, deployment.ErrAlreadySubmitted)
		}
		return deployment.PublishedComponent{}, awserr.Classify(fmt.Errorf("failed to create component version %s: %w", req.Component, err))
	}
	return deployment.PublishedComponent{ComponentVersion: req.Component, Arn: aws.ToString(out.Arn)}, nil
}
