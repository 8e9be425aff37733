package fetcher_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joulelab/jouleup/internal/fetcher"
	"github.com/joulelab/jouleup/internal/platform"
)

const testBinary = "joule-profiler"

// serverURLer routes asset URLs at a test server.
type serverURLer struct {
	base string
}

func (u *serverURLer) DownloadURL(tag, filename string) string {
	return fmt.Sprintf("%s/%s/%s", u.base, tag, filename)
}

// makeTarGz builds an in-memory .tar.gz holding the given entries.
func makeTarGz(entries map[string][]byte) []byte {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		Expect(tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		})).To(Succeed())
		_, err := tw.Write(content)
		Expect(err).NotTo(HaveOccurred())
	}

	Expect(tw.Close()).To(Succeed())
	Expect(gz.Close()).To(Succeed())

	return buf.Bytes()
}

var _ = Describe("Fetcher", func() {
	var (
		server  *httptest.Server
		assets  map[string][]byte
		target  platform.Target
		tag     string
		subject *fetcher.Fetcher
	)

	BeforeEach(func() {
		tag = "v1.2.0"
		target = platform.Target{Triple: "x86_64-unknown-linux-gnu"}
		assets = make(map[string][]byte)

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := assets[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			_, _ = w.Write(body)
		}))

		subject = fetcher.New(
			fetcher.NewDownloader(server.Client()),
			&serverURLer{base: server.URL},
			testBinary,
			nil,
		)
	})

	AfterEach(func() {
		server.Close()
	})

	archiveName := func() string {
		return fmt.Sprintf("%s-%s-%s.tar.gz", testBinary, tag, target.Triple)
	}

	publish := func(archive []byte, manifest string) {
		assets["/"+tag+"/"+archiveName()] = archive
		assets["/"+tag+"/"+archiveName()+".sha256"] = []byte(manifest)
	}

	manifestFor := func(archive []byte) string {
		sum := sha256.Sum256(archive)

		return fmt.Sprintf("%s  %s\n", hex.EncodeToString(sum[:]), archiveName())
	}

	It("downloads, verifies, and extracts the binary", func() {
		content := []byte("#!/bin/joule\n")
		archive := makeTarGz(map[string][]byte{
			"release/" + testBinary: content,
		})
		publish(archive, manifestFor(archive))

		path, cleanup, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).NotTo(HaveOccurred())
		defer cleanup()

		Expect(os.ReadFile(path)).To(Equal(content))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o755)))
	})

	It("removes the work directory via cleanup", func() {
		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		publish(archive, manifestFor(archive))

		path, cleanup, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).NotTo(HaveOccurred())

		cleanup()

		_, statErr := os.Stat(path)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("reports progress during the archive download", func() {
		archive := makeTarGz(map[string][]byte{testBinary: bytes.Repeat([]byte("a"), 4096)})
		publish(archive, manifestFor(archive))

		var calls int

		_, cleanup, err := subject.Fetch(
			context.Background(), tag, target,
			func(received, total int64) { calls++ },
		)
		Expect(err).NotTo(HaveOccurred())
		defer cleanup()

		Expect(calls).To(BeNumerically(">", 0))
	})

	It("rejects an archive whose digest differs from the manifest", func() {
		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		publish(archive, fmt.Sprintf("%064d  %s\n", 0, archiveName()))

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrChecksumMismatch))
	})

	It("removes the work directory after a checksum mismatch", func() {
		tmpRoot := GinkgoT().TempDir()
		GinkgoT().Setenv("TMPDIR", tmpRoot)

		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		publish(archive, fmt.Sprintf("%064d  %s\n", 0, archiveName()))

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrChecksumMismatch))

		entries, readErr := os.ReadDir(tmpRoot)
		Expect(readErr).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty(), "no partial download may survive the process")
	})

	It("rejects a manifest that declares no digest for the archive", func() {
		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		publish(archive, fmt.Sprintf("%064d  other-file.tar.gz\n", 0))

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrChecksumMismatch))
	})

	It("maps a missing sidecar to ErrAssetNotFound", func() {
		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		assets["/"+tag+"/"+archiveName()] = archive
		// no sidecar published

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrAssetNotFound))
	})

	It("maps a missing archive to ErrAssetNotFound", func() {
		archive := makeTarGz(map[string][]byte{testBinary: []byte("x")})
		assets["/"+tag+"/"+archiveName()+".sha256"] = []byte(manifestFor(archive))
		// no archive published

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrAssetNotFound))
	})

	It("fails extraction when the archive lacks the binary", func() {
		archive := makeTarGz(map[string][]byte{"README.md": []byte("docs")})
		publish(archive, manifestFor(archive))

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrExtractionFailed))
	})

	It("fails extraction on a corrupt archive", func() {
		archive := []byte("this is not gzip")
		publish(archive, manifestFor(archive))

		_, _, err := subject.Fetch(context.Background(), tag, target, nil)
		Expect(err).To(MatchError(fetcher.ErrExtractionFailed))
	})
})
