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
	"text/tabwriter"

	"github.com/superkkt/ascmd/capture"

	"github.com/urfave/cli/v3"
	"golang.org/x/net/context"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "list the captured exchanges in the capture database",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "cmd",
			Usage: "show the exchanges of this command only",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: 20,
			Usage: "maximum number of the exchanges",
		},
		&cli.BoolFlag{
			Name:  "xml",
			Usage: "print the request and response XML of each exchange",
		},
	},
	Action: historyAction,
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	conf := configFrom(ctx)
	if conf.Capture.Driver != "mysql" && conf.Capture.Driver != "sqlite3" {
		return fmt.Errorf("history needs a capture database: capture driver=%q", conf.Capture.Driver)
	}

	db, err := capture.OpenSQL(conf.Capture.Driver, conf.Capture.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	exchanges, err := db.Exchanges(cmd.String("cmd"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if !cmd.Bool("xml") {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tUSER\tCOMMAND\tSTATUS")
		for _, v := range exchanges {
			fmt.Fprintf(tw, "%v\t%v\t%v\t%v\t%v\n", v.ID, v.Time.Format("2006-01-02 15:04:05"), v.User, v.Command, v.StatusCode)
		}
		return tw.Flush()
	}

	color := isTerminal(w)
	for _, v := range exchanges {
		fmt.Fprintf(w, "#%v %v %v %v %v\n", v.ID, v.Time.Format("2006-01-02 15:04:05"), v.User, v.Command, v.StatusCode)
		if len(v.RequestXML) > 0 {
			printXML(w, v.RequestXML, color)
		}
		if len(v.ResponseXML) > 0 {
			printXML(w, v.ResponseXML, color)
		}
	}

	return nil
}
