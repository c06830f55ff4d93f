// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Command bvr is a minimal, non-interactive front-end over the bvr
// session core: it opens a file or stdin, optionally installs a match
// filter, follows the tail, and periodically dumps the filtered
// viewport to stdout. It is not the interactive pager; it exists to
// exercise the core end to end from the command line.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"comail.io/go/colog"
	"github.com/ninibe/bigduration"

	"github.com/bvrterm/bvr"
	"github.com/bvrterm/bvr/composite"
	"github.com/bvrterm/bvr/ingest"
	"github.com/bvrterm/bvr/matcher"
)

var (
	logLevel   = flag.String("loglevel", "info", "Logging level")
	debug      = flag.Bool("debug", false, "Start on debug mode")
	follow     = flag.Bool("follow", false, "Follow a growing file instead of stopping at EOF")
	match      = flag.String("match", "", "Regular expression filter applied to the buffer")
	literal    = flag.String("literal", "", "Literal substring filter applied to the buffer")
	intersect  = flag.Bool("intersect", false, "Combine -match and -literal with AND instead of OR")
	height     = flag.Int("height", 20, "Number of lines to print per viewport dump")
	refresh    = flag.String("refresh", "500ms", "Interval between viewport dumps")
	chunkSize  = flag.Int("chunk_size", 64*1024, "Ingest read chunk size in bytes")
)

func main() {
	flag.Parse()
	colog.Register()

	ll, err := colog.ParseLevel(*logLevel)
	fatalOn(err)
	colog.SetMinLevel(ll)

	if *debug {
		colog.SetFlags(log.LstdFlags | log.Lshortfile)
		colog.SetMinLevel(colog.LTrace)
	}

	refreshInterval, err := bigduration.ParseBigDuration(*refresh)
	fatalOn(err)

	source := "-"
	if flag.NArg() > 0 {
		source = flag.Arg(0)
	}

	sess, err := bvr.Open(source,
		bvr.ChunkSize(*chunkSize),
		bvr.Follow(*follow))
	fatalOn(err)
	defer sess.Close()

	if *match != "" {
		_, err := sess.NewMatcher(matcher.KindRegex, *match)
		fatalOn(err)
	}
	if *literal != "" {
		_, _ = sess.NewMatcher(matcher.KindLiteral, *literal)
	}
	if *intersect {
		sess.SetMode(composite.Intersect)
	}

	log.Printf("info: bvr session %s opened %q", sess.Info().ID, source)

	go bvr.NewProgressMonitor(sess).Start(refreshInterval.Duration())

	dumpLoop(sess, refreshInterval.Duration())
}

func dumpLoop(sess *bvr.Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		total := sess.FilteredLen()
		top := total - *height
		if top < 0 {
			top = 0
		}

		rows, err := sess.View(top, *height)
		if err != nil {
			log.Printf("error: bvr view: %s", err)
			continue
		}

		fmt.Print("\033[H\033[2J")
		for _, row := range rows {
			fmt.Printf("%8d  %s\n", row.LineNo, row.Text)
		}

		p := sess.Progress()
		if p.State == ingest.StateCompleteEOF && !*follow {
			return
		}
	}
}

func fatalOn(err error) {
	if err != nil {
		log.Fatalf("alert: %s\n", err)
	}
}
