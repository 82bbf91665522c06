package filestore_test

import (
	"log/slog"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/filestore"
)

// pngHeader is enough for content-type sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

var _ = Describe("FileStore", func() {
	var (
		store *filestore.Store
		dir   string
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "uploads")
		Expect(err).ToNot(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store, err = filestore.NewStore(dir, "/uploads", 1<<20, logger)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	Describe("DetectType", func() {
		It("should accept PNG images", func() {
			mimeType, err := store.DetectType(pngHeader)

			Expect(err).ToNot(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
		})

		It("should accept PDF documents", func() {
			mimeType, err := store.DetectType([]byte("%PDF-1.4 content"))

			Expect(err).ToNot(HaveOccurred())
			Expect(mimeType).To(Equal("application/pdf"))
		})

		It("should reject plain text", func() {
			_, err := store.DetectType([]byte("just some text"))

			Expect(err).To(Equal(internal.ErrUnsupportedFileType))
		})
	})

	Describe("Save", func() {
		It("should store the file under a random name with the right extension", func() {
			url, err := store.Save(pngHeader, "image/png")

			Expect(err).ToNot(HaveOccurred())
			Expect(url).To(HavePrefix("/uploads/"))
			Expect(url).To(HaveSuffix(".png"))

			f, err := store.Open(url)
			Expect(err).ToNot(HaveOccurred())
			f.Close()
		})

		It("should reject files over the size limit", func() {
			big := make([]byte, 2<<20)
			copy(big, pngHeader)

			_, err := store.Save(big, "image/png")

			Expect(err).To(HaveOccurred())
		})

		It("should reject unsupported types", func() {
			_, err := store.Save([]byte("data"), "text/plain")

			Expect(err).To(Equal(internal.ErrUnsupportedFileType))
		})
	})

	Describe("Open", func() {
		It("should reject path traversal", func() {
			_, err := store.Open("/uploads/../../etc/passwd")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("should remove a stored file", func() {
			url, err := store.Save(pngHeader, "image/png")
			Expect(err).ToNot(HaveOccurred())

			Expect(store.Delete(url)).To(Succeed())

			_, err = store.Open(url)
			Expect(err).To(HaveOccurred())
		})

		It("should tolerate a missing file", func() {
			Expect(store.Delete("/uploads/" + strings.Repeat("a", 10) + ".png")).To(Succeed())
		})
	})
})
