package links

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/linkmeta/internal/common"
	"github.com/dtnitsch/linkmeta/models"
	"github.com/dtnitsch/linkmeta/pkg/refetch"
)

func FolderAddAction(c *cli.Context) error {
	name := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("folder name is required")
	}

	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	folder, err := app.DB.CreateFolder(c.Context, name)
	if err != nil {
		return err
	}
	fmt.Println(folder.ID)
	return nil
}

func FolderListAction(c *cli.Context) error {
	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	folders, err := app.DB.ListFolders(c.Context)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Println("No folders found")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %s\n", "ID", "Created", "Name")
	fmt.Println(strings.Repeat("-", 80))
	for _, f := range folders {
		fmt.Printf("%-36s  %-20s  %s\n", f.ID, f.CreatedAt.Local().Format("2006-01-02 15:04:05"), f.Name)
	}
	fmt.Printf("\nTotal: %d folders\n", len(folders))
	return nil
}

func LinkAddAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one URL is required")
	}

	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	folderID := c.String("folder")
	if _, err := app.DB.GetFolder(c.Context, folderID); err != nil {
		return err
	}

	link, err := Add(c.Context, app.Resolver, app.DB, folderID, c.Args().First(), c.String("note"), app.Config.Favicon.PublicURL, app.Logger)
	if err != nil {
		return err
	}
	printLink(link)
	return nil
}

func LinkListAction(c *cli.Context) error {
	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	links, err := app.DB.ListLinks(c.Context, c.String("folder"))
	if err != nil {
		return err
	}
	if len(links) == 0 {
		fmt.Println("No links found")
		return nil
	}
	for _, link := range links {
		printLink(link)
	}
	fmt.Printf("\nTotal: %d links\n", len(links))
	return nil
}

func LinkRefetchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one link id is required")
	}

	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	link, err := app.DB.GetLink(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	s := newSpinner(c, " refetching "+link.URL)
	outcome, err := app.Refetch.Refetch(c.Context, link.ID, link.URL)
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", link.ID, outcome)
	if outcome == refetch.Updated {
		updated, err := app.DB.GetLink(c.Context, link.ID)
		if err != nil {
			return err
		}
		printLink(updated)
	}
	return nil
}

func ImportAction(c *cli.Context) error {
	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	folderID := c.String("folder")
	if _, err := app.DB.GetFolder(c.Context, folderID); err != nil {
		return err
	}

	text, err := readInput(c.Args().First())
	if err != nil {
		return err
	}

	s := newSpinner(c, " resolving")
	result, err := app.Importer.Import(c.Context, folderID, text, func(done, total int) {
		s.Lock()
		s.Suffix = fmt.Sprintf(" resolving %d/%d", done, total)
		s.Unlock()
	})
	s.Stop()
	if err != nil {
		return err
	}

	for _, bad := range result.Invalid {
		fmt.Fprintf(os.Stderr, "skipped invalid line: %s\n", bad)
	}
	fmt.Printf("Imported %d links into %s\n", len(result.Links), folderID)
	return nil
}

func RefreshAction(c *cli.Context) error {
	app, err := common.NewApp(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	links, err := app.DB.ListLinks(c.Context, c.String("folder"))
	if err != nil {
		return err
	}
	if len(links) == 0 {
		fmt.Println("No links found")
		return nil
	}

	counts := map[refetch.Outcome]int{}
	s := newSpinner(c, " refreshing")
	done := 0
	err = app.Refetch.RefreshAll(c.Context, links, func(link models.Link, outcome refetch.Outcome) {
		done++
		counts[outcome]++
		s.Lock()
		s.Suffix = fmt.Sprintf(" refreshing %d/%d", done, len(links))
		s.Unlock()
	})
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Printf("Refreshed %d links: %d updated, %d unchanged, %d failed, %d skipped\n",
		len(links), counts[refetch.Updated], counts[refetch.NothingToUpdate], counts[refetch.GaveUp], counts[refetch.Skipped])
	return nil
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read import input: %w", err)
	}
	return string(data), nil
}

// newSpinner starts a stderr spinner unless --quiet is set. The returned
// spinner is always safe to Stop.
func newSpinner(c *cli.Context, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	if !c.Bool("quiet") {
		s.Start()
	}
	return s
}

func printLink(link models.Link) {
	fmt.Printf("%s  %s\n    %s\n", link.ID, link.Title, link.URL)
	if link.Description != "" {
		fmt.Printf("    %s\n", link.Description)
	}
	if link.Note != "" {
		fmt.Printf("    note: %s\n", link.Note)
	}
}
