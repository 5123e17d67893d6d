/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 15:12:46 2019 mstenber
 * Last modified: Fri Mar 29 12:30:18 2019 mstenber
 * Edit time:     58 min
 *
 */

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fingon/go-shamap/shamap"
	"github.com/fingon/go-shamap/storage/factory"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [flags] INPUTFILE STOREDIR\n%s -verify [flags] STOREDIR1 STOREDIR2\n",
			os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	password := flag.String("password", "", "Password (empty = no encryption at rest)")
	salt := flag.String("salt", "salt", "Salt")
	rootName := flag.String("rootname", "root", "Name of the root reference")
	backendp := flag.String("backend", "bolt",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	verify := flag.Bool("verify", false, "Load the named root from two stores and deep-compare them")

	flag.Parse()

	conf := factory.CryptoStorageConfiguration{
		BackendName: *backendp, Password: *password, Salt: *salt}

	if *verify {
		if flag.NArg() < 2 {
			flag.Usage()
			os.Exit(1)
		}
		load := func(dir string) *shamap.SHAMap {
			c := conf
			c.Directory = dir
			st := factory.NewCryptoStorage(c)
			defer st.Close()
			m, err := st.Load(*rootName, false)
			if err != nil {
				log.Fatal(err)
			}
			return m
		}
		m1 := load(flag.Arg(0))
		m2 := load(flag.Arg(1))
		fmt.Printf("%s %s\n%s %s\n", m1.RootHash(), flag.Arg(0), m2.RootHash(), flag.Arg(1))
		if !m1.DeepCompare(m2) || !m2.DeepCompare(m1) {
			fmt.Printf("stores differ\n")
			os.Exit(1)
		}
		fmt.Printf("stores match\n")
		return
	}

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	input := flag.Arg(0)
	conf.Directory = flag.Arg(1)

	f, err := os.Open(input)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	m := shamap.SHAMap{TrackDirty: true}.Init()
	scanner := bufio.NewScanner(f)
	items := 0
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		err = m.AddItem(shamap.Item{Key: shamap.Key(shamap.SHA512Half(line)), Value: line})
		if err != nil {
			log.Fatal(err)
		}
		items++
	}
	if err = scanner.Err(); err != nil {
		log.Fatal(err)
	}
	m.SetImmutable()
	fmt.Printf("%d items, root %s\n", items, m.RootHash())

	st := factory.NewCryptoStorage(conf)
	defer st.Close()
	ops, err := st.Persist(m, *rootName)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d nodes written\n", ops)

	// Read our own writing to make sure the store round-trips.
	m2, err := st.Load(*rootName, false)
	if err != nil {
		log.Fatal(err)
	}
	if !m.DeepCompare(m2) {
		log.Fatal("store does not round-trip")
	}
	fmt.Printf("verified %s\n", m2.RootHash())
}
