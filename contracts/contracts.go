/*
Package contracts reads compiled SocialWallet contract artifacts.

Artifacts are produced by the neo-go compiler:

	neo-go contract compile -i socialwallet -c socialwallet/config.yml \
		-m <dir>/manifest.json -o <dir>/contract.nef
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	// Name is the name of the SocialWallet contract in its manifest.
	Name = "SocialWallet"

	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups information about Neo contract ready for deployment.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	errInvalidNEF      = errors.New("invalid NEF")
	errInvalidManifest = errors.New("invalid manifest")
	errUnexpectedName  = errors.New("unexpected contract name")
)

// ReadDir reads SocialWallet contract from the directory of the local file
// system containing 'contract.nef' and 'manifest.json' files.
func ReadDir(dir string) (Contract, error) {
	c, err := read(os.DirFS(dir), ".")
	if err != nil {
		return c, fmt.Errorf("read contract from %s: %w", dir, err)
	}

	return c, nil
}

// read same as ReadDir but allows to override source fs.FS.
func read(_fs fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS paths use "/" even on Windows, so filepath.Join() is not
	// applicable.
	fNEF, err := _fs.Open(path.Join(dir, nefName))
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := _fs.Open(path.Join(dir, manifestName))
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	if c.Manifest.Name != Name {
		return c, fmt.Errorf("%w: %s", errUnexpectedName, c.Manifest.Name)
	}

	return c, nil
}
