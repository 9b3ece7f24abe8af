// Copyright 2026 The Colony Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command colonyctl controls a running colonyd by writing message files
// into its message directory.  It never talks to the daemon directly;
// if the daemon is down, messages simply wait in the directory until it
// comes back.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gocolony/colony"
	"github.com/gocolony/colony/ctl"
	"github.com/gocolony/colony/rest"
)

var (
	configDir string
	msgDir    string
	addr      string

	addCmdPath  string
	addArgs     []string
	addEnv      []string
	addUID      uint32
	addGID      uint32
	addStopTime time.Duration
)

func places() ctl.Places {
	return ctl.Places{Config: configDir, Messages: msgDir}
}

func parseEnv(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			return nil, fmt.Errorf("bad environment entry %q", kv)
		}
		env[kv[:i]] = kv[i+1:]
	}
	return env, nil
}

func main() {
	root := &cobra.Command{
		Use:           "colonyctl",
		Short:         "Control a running colony supervisor",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "config",
		"process manifest directory")
	root.PersistentFlags().StringVar(&msgDir, "messages", "messages",
		"control message directory")

	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a process (or replace its spec)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, e := parseEnv(addEnv)
			if e != nil {
				return e
			}
			spec := colony.ProcessSpec{
				Name:     args[0],
				Args:     append([]string{addCmdPath}, addArgs...),
				Env:      env,
				StopTime: addStopTime,
			}
			if cmd.Flags().Changed("uid") {
				spec.UID = &addUID
			}
			if cmd.Flags().Changed("gid") {
				spec.GID = &addGID
			}
			return ctl.Add(places(), spec)
		},
	}
	addCmd.Flags().StringVar(&addCmdPath, "cmd", "", "executable path")
	addCmd.Flags().StringArrayVar(&addArgs, "arg", nil,
		"argument (repeatable)")
	addCmd.Flags().StringArrayVar(&addEnv, "env", nil,
		"NAME=VALUE environment entry (repeatable)")
	addCmd.Flags().Uint32Var(&addUID, "uid", 0, "run as this uid")
	addCmd.Flags().Uint32Var(&addGID, "gid", 0, "run as this gid")
	addCmd.Flags().DurationVar(&addStopTime, "stop-time", 0,
		"grace period between SIGTERM and SIGKILL")
	addCmd.MarkFlagRequired("cmd")

	removeCmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.Remove(places(), args[0])
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart NAME",
		Short: "Restart a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.Restart(places(), args[0])
		},
	}

	restartAllCmd := &cobra.Command{
		Use:   "restart-all",
		Short: "Restart every running process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctl.RestartAll(places())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List declared processes from the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, e := colony.LoadConfigDir(configDir, nil)
			if e != nil {
				return e
			}
			for _, spec := range specs {
				fmt.Printf("%-20s %s\n", spec.Name,
					strings.Join(spec.Args, " "))
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status [NAME...]",
		Short: "Show live status via the daemon's REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(),
				5*time.Second)
			defer cancel()
			client := rest.NewClient(nil, addr)
			names := args
			if len(names) == 0 {
				var e error
				if names, e = client.Processes(ctx); e != nil {
					return e
				}
				sort.Strings(names)
			}
			for _, name := range names {
				info, e := client.GetProcess(ctx, name)
				if e != nil {
					return e
				}
				d := time.Since(info.Stamp)
				d -= d % time.Second
				fmt.Printf("%-20s %-10s %8d %10s %s\n", info.Name,
					info.State, info.Restarts, d, info.Status)
			}
			return nil
		},
	}
	statusCmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8322",
		"colonyd REST address")

	root.AddCommand(addCmd, removeCmd, restartCmd, restartAllCmd,
		listCmd, statusCmd)

	if e := root.Execute(); e != nil {
		os.Exit(1)
	}
}
