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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/superkkt/ascmd/activesync"

	"github.com/urfave/cli/v3"
	"golang.org/x/net/context"
)

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "send a raw XML request without verification and print the response",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "cmd",
			Usage:    "command name such as FolderSync",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "param",
			Usage: "command parameter in name=value form",
		},
		&cli.StringFlag{
			Name:  "body",
			Usage: "file of the XML request body, - for the standard input",
		},
		&cli.IntFlag{
			Name:  "user",
			Value: 1,
			Usage: "configured user number",
		},
		&cli.StringFlag{
			Name:  "policy-key",
			Usage: "policy key of the request",
		},
	},
	Action: sendAction,
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	conf := configFrom(ctx)

	name, err := activesync.ParseCommandName(cmd.String("cmd"))
	if err != nil {
		return err
	}
	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}
	body, err := readBody(cmd.String("body"), os.Stdin)
	if err != nil {
		return err
	}
	user := int(cmd.Int("user")) - 1
	if user < 0 || user >= len(conf.Users) {
		return fmt.Errorf("invalid user number: %v", cmd.Int("user"))
	}
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
	a, err := newAdapter(conf, sender, recorder, user)
	if err != nil {
		return err
	}
	if key := cmd.String("policy-key"); len(key) > 0 {
		a.ChangePolicyKey(key)
	}

	resp, err := a.SendStringRequest(name, params, body)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "HTTP %v\n", resp.StatusCode)
	if len(resp.XML) > 0 {
		printXML(w, resp.XML, isTerminal(w))
	}

	return nil
}

func parseParams(values []string) (activesync.Parameters, error) {
	params := make(activesync.Parameters)
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter: %v", v)
		}
		p, err := activesync.ParseCmdParameter(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		params[p] = value
	}

	return params, nil
}

func readBody(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return "", nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read the request body: %v", err)
	}

	return strings.TrimSpace(string(data)), nil
}
