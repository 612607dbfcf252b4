package tray

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log"
	"path/filepath"
	"time"

	"github.com/getlantern/systray"
	"github.com/pkg/browser"

	"github.com/ibeckermayer/xdash/internal/app"
	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/scheduler"
	"github.com/ibeckermayer/xdash/internal/types"
)

// OnReady returns a systray onReady callback that sets up the menu.
func OnReady(a *app.App) func() {
	return func() {
		icon := Icon()
		systray.SetTemplateIcon(icon, icon)
		systray.SetTitle("")
		systray.SetTooltip("xdash - X analytics dashboard")

		mStatus := systray.AddMenuItem("○ Dashboard starting", "Dashboard address")
		mStatus.Disable()
		if url := a.URL(); url != "" {
			mStatus.SetTitle("● " + url)
		}
		mOpen := systray.AddMenuItem("Open Dashboard", "Open the dashboard in the browser")

		// Account switcher
		mAccounts := systray.AddMenuItem("Account", "Switch the analysed account")
		snap := a.State().Snapshot()
		entries := append([]types.Account{{ID: types.AllAccountsID, Name: "全アカウント"}}, snap.Accounts...)
		items := make([]*systray.MenuItem, len(entries))
		for i, acc := range entries {
			items[i] = mAccounts.AddSubMenuItem(acc.Name, acc.Handle)
			if acc.ID == snap.Account {
				items[i].Check()
			}
			go watchAccount(a, acc.ID, items[i], items)
		}

		systray.AddSeparator()

		mExport := systray.AddMenuItem("Export CSV", "Write the loaded posts to a CSV file")
		mCopyBest := systray.AddMenuItem("Copy Best Post", "Copy the most liked post's text")
		mProbe := systray.AddMenuItem("Check Connections", "Ping every account endpoint")
		mWeekly := systray.AddMenuItem("Weekly Report Now", "Build and send the weekly report")
		mViewReport := systray.AddMenuItem("View Last Report", "Open the last weekly report")

		systray.AddSeparator()

		mEditConfig := systray.AddMenuItem("Edit Config", "Open config file in editor")

		systray.AddSeparator()

		mQuit := systray.AddMenuItem("Quit", "Exit xdash")

		go func() {
			for {
				select {
				case <-mOpen.ClickedCh:
					if err := a.OpenDashboard(); err != nil {
						log.Printf("[tray] open dashboard: %v", err)
					}

				case <-mExport.ClickedCh:
					path, err := a.ExportCSV()
					if err != nil {
						log.Printf("[tray] export failed: %v", err)
						continue
					}
					if err := browser.OpenFile(filepath.Dir(path)); err != nil {
						log.Printf("[tray] failed to open %s: %v", filepath.Dir(path), err)
					}

				case <-mCopyBest.ClickedCh:
					if p, err := a.CopyBestPost(); err != nil {
						log.Printf("[tray] copy failed: %v", err)
					} else {
						log.Printf("[tray] copied post from %s (%d likes)", p.Timestamp.Format("01/02 15:04"), p.Likes)
					}

				case <-mProbe.ClickedCh:
					go runJob(a, scheduler.JobProbe)

				case <-mWeekly.ClickedCh:
					go runJob(a, scheduler.JobWeeklyReport)

				case <-mViewReport.ClickedCh:
					path, err := a.LatestWeeklyReport()
					if err != nil {
						log.Printf("[tray] no report found: %v", err)
						continue
					}
					if err := browser.OpenFile(path); err != nil {
						log.Printf("[tray] failed to open report: %v", err)
					}

				case <-mEditConfig.ClickedCh:
					path, err := config.ConfigPath()
					if err != nil {
						log.Printf("[tray] failed to get config path: %v", err)
						continue
					}
					if err := browser.OpenFile(path); err != nil {
						log.Printf("[tray] failed to open config file: %v", err)
					}

				case <-mQuit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()
	}
}

func watchAccount(a *app.App, id string, item *systray.MenuItem, all []*systray.MenuItem) {
	for range item.ClickedCh {
		if err := a.State().SwitchAccount(id); err != nil {
			log.Printf("[tray] switch account: %v", err)
			continue
		}
		for _, other := range all {
			other.Uncheck()
		}
		item.Check()
	}
}

func runJob(a *app.App, name string) {
	if err := a.RunJob(context.Background(), name); err != nil {
		log.Printf("[tray] %s failed: %v", name, err)
	}
}

// OnExit returns the systray onExit callback, which shuts the app down.
func OnExit(a *app.App) func() {
	return func() {
		log.Println("[tray] xdash shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			log.Printf("[tray] shutdown: %v", err)
		}
	}
}

// Icon draws the menu bar template icon: four ascending bars on a
// transparent background.
func Icon() []byte {
	const size = 22
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{A: 0xff}
	for bar := 0; bar < 4; bar++ {
		x0 := 2 + bar*5
		top := size - 4 - (bar+1)*4
		for x := x0; x < x0+3; x++ {
			for y := top; y < size-2; y++ {
				img.SetNRGBA(x, y, ink)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("[tray] icon: %v", err)
	}
	return buf.Bytes()
}
