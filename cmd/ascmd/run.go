/*
 * Omega is an advanced email service that supports Microsoft ActiveSync.
 *
 * Copyright (C) 2016, 2017 Kitae Kim <superkkt@gmail.com>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/superkkt/ascmd/activesync"
	"github.com/superkkt/ascmd/config"
	"github.com/superkkt/ascmd/mime"
	"github.com/superkkt/ascmd/smtp"
	"github.com/superkkt/ascmd/verify"

	"github.com/google/uuid"
	"github.com/superkkt/logger"
	"github.com/urfave/cli/v3"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run the basic command scenario for every configured user",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-seed",
			Usage: "skip seeding a message through SMTP and searching for it",
		},
	},
	Action: runAction,
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	conf := configFrom(ctx)
	if err := askPasswords(conf); err != nil {
		return err
	}

	sender, err := newSender(conf)
	if err != nil {
		return err
	}
	recorder, closer, err := openRecorder(conf)
	if err != nil {
		return fmt.Errorf("failed to open the capture: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	var seeder *smtp.Sendmail
	if conf.SMTP.Enabled() && !cmd.Bool("no-seed") {
		if seeder, err = newSeeder(conf); err != nil {
			return err
		}
	}

	scenarios := make([]*scenario, len(conf.Users))
	for i := range conf.Users {
		a, err := newAdapter(conf, sender, recorder, i)
		if err != nil {
			return err
		}
		scenarios[i] = &scenario{conf: conf, index: i, seeder: seeder, adapter: a}
	}

	return runAll(ctx, cmd.Root().Writer, conf, scenarios)
}

// runAll runs the scenarios in parallel and reports the result of each user.
// A cancelled ctx stops every scenario at its next step.
func runAll(ctx context.Context, w io.Writer, conf *config.Config, scenarios []*scenario) error {
	results := make([]error, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = sc.run(ctx)
			return results[i]
		})
	}
	err := g.Wait()

	report(w, conf, results)

	return err
}

func report(w io.Writer, conf *config.Config, results []error) {
	for i, err := range results {
		var failure *verify.Failure
		switch {
		case err == nil:
			fmt.Fprintf(w, "%v: PASS\n", conf.Users[i].Name)
		case errors.As(err, &failure):
			fmt.Fprintf(w, "%v: FAIL (%v)\n", conf.Users[i].Name, failure)
		case errors.Is(err, context.Canceled):
			fmt.Fprintf(w, "%v: CANCELED\n", conf.Users[i].Name)
		default:
			fmt.Fprintf(w, "%v: ERROR (%v)\n", conf.Users[i].Name, err)
		}
	}
}

type scenario struct {
	conf    *config.Config
	index   int
	seeder  *smtp.Sendmail
	adapter commandAdapter
}

// commandAdapter is the part of adapter.Adapter that the scenario uses.
type commandAdapter interface {
	Provision(req *activesync.ProvisionRequest) (*activesync.ProvisionResponse, error)
	FolderSync(req *activesync.FolderSyncRequest) (*activesync.FolderSyncResponse, error)
	Sync(req *activesync.SyncRequest, resync bool) (*activesync.SyncResponse, error)
	Search(req *activesync.SearchRequest) (*activesync.SearchResponse, error)
	ChangePolicyKey(key string)
}

func (r *scenario) run(ctx context.Context) error {
	steps := []struct {
		name string
		f    func() error
	}{
		{"Provision", r.provision},
		{"FolderSync and Sync", r.syncInbox},
		{"Search", r.seedAndSearch},
	}
	for _, v := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("%v: %v", r.conf.Users[r.index].Name, v.name))
		if err := v.f(); err != nil {
			return fmt.Errorf("%v: %w", v.name, err)
		}
	}

	return nil
}

func (r *scenario) provision() error {
	req := &activesync.ProvisionRequest{
		DeviceInformation: &activesync.DeviceInformation{
			Set: activesync.DeviceInformationSet{
				Model:        programName,
				FriendlyName: fmt.Sprintf("%v %v", programName, programVersion),
				OS:           "Go",
				UserAgent:    fmt.Sprintf("%v/%v", programName, programVersion),
			},
		},
		Policies: &activesync.ProvisionPolicies{
			Policy: activesync.ProvisionPolicy{PolicyType: activesync.PolicyTypeXML},
		},
	}
	resp, err := r.adapter.Provision(req)
	if err != nil {
		return err
	}
	key := resp.ResponseData.PolicyKey()
	if len(key) == 0 {
		return fmt.Errorf("no temporary policy key: status=%v", resp.ResponseData.Status)
	}
	r.adapter.ChangePolicyKey(key)

	// Acknowledge the policy to get the final key.
	req = &activesync.ProvisionRequest{
		Policies: &activesync.ProvisionPolicies{
			Policy: activesync.ProvisionPolicy{
				PolicyType: activesync.PolicyTypeXML,
				PolicyKey:  key,
				Status:     "1",
			},
		},
	}
	resp, err = r.adapter.Provision(req)
	if err != nil {
		return err
	}
	key = resp.ResponseData.PolicyKey()
	if len(key) == 0 {
		return fmt.Errorf("no final policy key: status=%v", resp.ResponseData.Status)
	}
	r.adapter.ChangePolicyKey(key)
	logger.Debug(fmt.Sprintf("%v: policy key=%v", r.conf.Users[r.index].Name, key))

	return nil
}

func (r *scenario) syncInbox() error {
	folders, err := r.adapter.FolderSync(&activesync.FolderSyncRequest{SyncKey: "0"})
	if err != nil {
		return err
	}
	inbox, ok := folders.ResponseData.FindFolder(activesync.FolderTypeInbox)
	if !ok {
		return fmt.Errorf("inbox is not found: status=%v", folders.ResponseData.Status)
	}

	resp, err := r.adapter.Sync(newSyncRequest("0", inbox.ServerId, false), false)
	if err != nil {
		return err
	}
	c, ok := resp.ResponseData.Collection()
	if !ok {
		return fmt.Errorf("empty initial sync response: status=%v", resp.ResponseData.Status)
	}

	resp, err = r.adapter.Sync(newSyncRequest(c.SyncKey, inbox.ServerId, true), true)
	if err != nil {
		return err
	}
	if c, ok = resp.ResponseData.Collection(); ok && c.Commands != nil {
		logger.Info(fmt.Sprintf("%v: %v items in the inbox", r.conf.Users[r.index].Name, len(c.Commands.Add)))
	}

	return nil
}

func newSyncRequest(syncKey, collectionID string, getChanges bool) *activesync.SyncRequest {
	c := activesync.SyncRequestCollection{
		SyncKey:      syncKey,
		CollectionId: collectionID,
	}
	if getChanges {
		c.GetChanges = "1"
		c.WindowSize = "100"
	}

	return &activesync.SyncRequest{
		Collections: &activesync.SyncRequestCollections{
			Collection: []activesync.SyncRequestCollection{c},
		},
	}
}

func (r *scenario) seedAndSearch() error {
	if r.seeder == nil {
		logger.Debug(fmt.Sprintf("%v: seeding is disabled", r.conf.Users[r.index].Name))
		return nil
	}

	addr := r.conf.EmailAddress(r.index)
	subject := uuid.New().String()
	msg := mime.Compose(addr, []string{addr}, subject, fmt.Sprintf("This message is seeded by %v.", programName))
	if err := r.seeder.Seed(msg); err != nil {
		return fmt.Errorf("failed to seed a message: %v", err)
	}

	resp, err := r.adapter.Search(newSearchRequest(subject))
	if err != nil {
		return err
	}
	if resp.ResponseData.Response != nil {
		logger.Info(fmt.Sprintf("%v: %v messages found", r.conf.Users[r.index].Name, len(resp.ResponseData.Response.Store.Result)))
	}

	return nil
}

func newSearchRequest(text string) *activesync.SearchRequest {
	return &activesync.SearchRequest{
		Store: activesync.SearchStore{
			Name:    "Mailbox",
			Query:   activesync.InnerXML{Data: searchQuery(text)},
			Options: &activesync.SearchOptions{Range: "0-9"},
		},
	}
}

func searchQuery(text string) string {
	return fmt.Sprintf(`<And><Class xmlns="AirSync:">Email</Class><FreeText>%v</FreeText></And>`, escape(text))
}
