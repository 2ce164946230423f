// Copyright 2026 The Logvisor Authors
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

package main

import (
	"log/slog"

	"github.com/nutrilab/logvisor/logvisor/ui"
	"github.com/nutrilab/logvisor/rest"
)

func doUI(client *rest.Client, url string, logger *slog.Logger) error {
	app := ui.NewApp(client, url)
	app.SetLogger(logger)
	return app.Run()
}

/*
   Our screen has the following appearance:

    http://127.0.0.1:8321           Processes                 Logvisor v1.0
     3 Processes   1 Running   1 Failed   1 Stopped
   ____________________________________________________________________________
   db                   failed        0:04:10   returncode=1
   web                  running       1:02:33   pid 4711
   job                  exited        0:00:05   returncode=0
   ____________________________________________________________________________
   [Q] Quit [H] Help [I] Info [L] Log [S] Stop [K] Kill
*/
