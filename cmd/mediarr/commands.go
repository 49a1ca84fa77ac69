package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/mediarr/internal/config"
	"github.com/mmcdole/mediarr/internal/domain"
	"github.com/mmcdole/mediarr/internal/mediaserver"
	"github.com/mmcdole/mediarr/internal/rules"
)

var allFeatures = []domain.Feature{
	domain.FeatureCollectionVisibility,
	domain.FeatureWatchlist,
	domain.FeatureCentralRatings,
	domain.FeatureSmartCollections,
	domain.FeatureServerHistory,
	domain.FeatureLabels,
}

// setup handles first-time configuration: detect, sign in, save
func (a *app) setup(ctx context.Context, args []string) error {
	a.term.Println()
	a.term.Println(titleStyle.Render("Welcome to mediarr!"))
	a.term.Println()

	var serverURL string
	if len(args) > 0 {
		serverURL = strings.TrimRight(strings.TrimSpace(args[0]), "/")
	}

	// Loop until we get a reachable server
	var serverType domain.ServerType
	for {
		if serverURL == "" {
			input, err := a.term.Prompt("Enter your server URL (e.g., http://192.168.1.100:32400): ")
			if err != nil {
				return err
			}
			serverURL = strings.TrimRight(input, "/")
			if serverURL == "" {
				a.term.Println("Server URL cannot be empty. Please try again.")
				continue
			}
		}

		err := withSpinner(ctx, "Detecting server type...", func(ctx context.Context) error {
			var err error
			serverType, err = mediaserver.DetectServerType(ctx, serverURL, a.logger)
			return err
		})
		if errors.Is(err, errInterrupted) || ctx.Err() != nil {
			return errInterrupted
		}
		if err != nil {
			a.term.Println(failure(fmt.Sprintf("Could not detect server type: %v", err)))
			a.term.Println("Please check the URL and try again.")
			a.term.Println()
			serverURL = ""
			continue
		}
		break
	}
	a.term.Println(success("Detected: " + serverName(serverType)))
	a.term.Println()

	clientID := a.cfg.Server.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	flow, err := mediaserver.NewAuthFlow(serverType, clientID, a.transportOptions(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to create auth flow: %w", err)
	}
	result, err := flow.Run(ctx, serverURL, a.term)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	err = a.cfg.SaveServer(config.ServerConfig{
		Type:     serverType,
		URL:      serverURL,
		APIKey:   result.Token,
		UserID:   result.UserID,
		ClientID: clientID,
	})
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	a.term.Println()
	if result.Username != "" {
		a.term.Println(success("Signed in as " + result.Username))
	}
	a.term.Println(success("Configuration saved!"))
	return nil
}

func (a *app) test(ctx context.Context) error {
	server, err := a.newAdapter(ctx)
	if err != nil {
		return err
	}

	var res domain.ConnectionResult
	err = withSpinner(ctx, "Testing connection...", func(ctx context.Context) error {
		res = server.TestConnection(ctx, a.cfg.Server.URL, a.cfg.Server.APIKey)
		return nil
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("connection test failed: %s", res.Error)
	}

	a.term.Println(success(fmt.Sprintf("Connected to %s (version %s)", res.ServerName, res.Version)))
	return nil
}

func (a *app) status(ctx context.Context) error {
	server, err := a.connect(ctx)
	if err != nil {
		return err
	}

	st := server.GetStatus(ctx)
	if st == nil {
		return errors.New("server status unavailable")
	}

	a.term.Println(titleStyle.Render(serverName(server.ServerType())))
	a.term.Println(fmt.Sprintf("  name      %s", st.Name))
	a.term.Println(fmt.Sprintf("  version   %s", st.Version))
	a.term.Println(fmt.Sprintf("  machine   %s", st.MachineID))
	if st.Platform != "" {
		a.term.Println(fmt.Sprintf("  platform  %s", st.Platform))
	}

	a.term.Println()
	a.term.Println(titleStyle.Render("Features"))
	for _, f := range allFeatures {
		mark := dimStyle.Render("-")
		if domain.SupportsFeature(server.ServerType(), f) {
			mark = successStyle.Render("✓")
		}
		a.term.Println(fmt.Sprintf("  %s %s", mark, f))
	}
	return nil
}

func (a *app) libraries(ctx context.Context, args []string) error {
	server, err := a.connect(ctx)
	if err != nil {
		return err
	}

	libs := matchLibraries(server.GetLibraries(ctx), strings.Join(args, " "))
	if len(libs) == 0 {
		a.term.Println(dimStyle.Render("No libraries found"))
		return nil
	}

	for _, lib := range libs {
		count := server.GetLibraryContentCount(ctx, lib.ID, lib.Type)
		a.term.Println(fmt.Sprintf("%-6s %-30s %-8s %s", lib.ID, lib.Title, lib.Type, dimStyle.Render(fmt.Sprintf("%d items", count))))
	}
	return nil
}

func (a *app) properties() error {
	for _, p := range rules.Properties {
		a.term.Println(fmt.Sprintf("%3d  %-38s %-9s %s", p.ID, p.Name, p.Type, dimStyle.Render(p.HumanName)))
	}
	return nil
}

func (a *app) resolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	itemID := fs.String("item", "", "item id")
	level := fs.String("type", "", "rule level: movie, show, season or episode")
	exclude := fs.String("exclude", "", "comma-separated collection names to ignore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *itemID == "" {
		return errors.New("resolve needs -item")
	}

	var dataType *domain.MediaItemType
	if *level != "" {
		t, ok := domain.ParseMediaItemType(*level)
		if !ok {
			return fmt.Errorf("invalid type %q", *level)
		}
		dataType = &t
	}

	props := rules.Properties
	if fs.NArg() > 0 {
		props = nil
		for _, arg := range fs.Args() {
			p, err := lookupProperty(arg)
			if err != nil {
				return err
			}
			props = append(props, p)
		}
	}

	server, err := a.connect(ctx)
	if err != nil {
		return err
	}
	resolver, err := rules.NewResolver(server, a.store, a.logger)
	if err != nil {
		return err
	}

	group := &rules.RuleGroupContext{ExcludedCollections: splitList(*exclude)}
	item := domain.MediaItem{ID: *itemID}

	var results []rules.Result
	err = withSpinner(ctx, "Resolving properties...", func(ctx context.Context) error {
		results = resolveAll(ctx, resolver, props, item, dataType, group)
		return nil
	})
	if err != nil {
		return err
	}

	for i, p := range props {
		a.term.Println(fmt.Sprintf("%-38s %s", p.Name, formatResult(results[i])))
	}
	return nil
}

type propertyGetter interface {
	Get(ctx context.Context, propertyID int, item domain.MediaItem, dataType *domain.MediaItemType, group *rules.RuleGroupContext) rules.Result
}

// resolveAll resolves props one at a time; a property may already fan out per user.
// Properties left when ctx is cancelled come back as failed.
func resolveAll(ctx context.Context, r propertyGetter, props []rules.Property, item domain.MediaItem, dataType *domain.MediaItemType, group *rules.RuleGroupContext) []rules.Result {
	results := make([]rules.Result, len(props))
	for i, p := range props {
		if ctx.Err() != nil {
			results[i] = rules.Failed()
			continue
		}
		results[i] = r.Get(ctx, p.ID, item, dataType, group)
	}
	return results
}

func formatResult(res rules.Result) string {
	switch {
	case res.IsFailed():
		return errorStyle.Render("failed")
	case res.IsNotApplicable():
		return dimStyle.Render("n/a")
	}

	v, _ := res.Value()
	switch v := v.(type) {
	case time.Time:
		return v.Local().Format("2006-01-02 15:04")
	case []string:
		if len(v) == 0 {
			return dimStyle.Render("(none)")
		}
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func (a *app) expand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("expand", flag.ContinueOnError)
	collType := fs.String("type", "", "collection type: movie, show, season or episode")
	sel := fs.String("select", "", "selection as TYPE[:ID], e.g. season:200")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expand needs exactly one media id")
	}

	var collectionType *domain.MediaItemType
	if *collType != "" {
		t, ok := domain.ParseMediaItemType(*collType)
		if !ok {
			return fmt.Errorf("invalid type %q", *collType)
		}
		collectionType = &t
	}
	selection, err := parseSelection(*sel)
	if err != nil {
		return err
	}

	server, err := a.connect(ctx)
	if err != nil {
		return err
	}
	ids, err := server.GetAllIdsForContextAction(ctx, collectionType, selection, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, id := range ids {
		a.term.Println(id)
	}
	return nil
}

func (a *app) warm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("warm needs a library id")
	}

	server, err := a.connect(ctx)
	if err != nil {
		return err
	}
	warmer, ok := server.(domain.WatchedLibraryWarmer)
	if !ok {
		a.term.Println(dimStyle.Render(serverName(server.ServerType()) + " does not need a watched index"))
		return nil
	}

	err = withSpinner(ctx, "Building watched index...", func(ctx context.Context) error {
		return warmer.WarmWatchedLibrary(ctx, args[0])
	})
	if err != nil {
		return err
	}
	a.term.Println(success("Watched index ready for library " + args[0]))
	return nil
}
