// Command certgen creates a development certificate authority and a server
// certificate for the vault under the output directory. An existing CA in
// that directory is reused so clients keep trusting it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/SecureNotes/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		log.Fatalf("certgen: %v", err)
	}
	fmt.Printf("Certificates written to %s\n", *dir)
}

func run(dir string, hosts []string) error {
	caCertPath := filepath.Join(dir, certgen.CACertFile)
	caKeyPath := filepath.Join(dir, certgen.CAKeyFile)

	if _, err := os.Stat(caCertPath); errors.Is(err, fs.ErrNotExist) {
		certPEM, keyPEM, err := certgen.GenerateCA("SecureNotes Dev CA")
		if err != nil {
			return err
		}
		if err := certgen.WritePair(dir, certgen.CACertFile, certgen.CAKeyFile, certPEM, keyPEM); err != nil {
			return err
		}
	}

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		return err
	}

	var clean []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			clean = append(clean, h)
		}
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(clean, caCert, caKey)
	if err != nil {
		return err
	}
	return certgen.WritePair(dir, certgen.ServerCertFile, certgen.ServerKeyFile, certPEM, keyPEM)
}
