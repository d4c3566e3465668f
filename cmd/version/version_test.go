package versioncmder_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/legalsakhi/sakhi/cmd/version"
	"github.com/legalsakhi/sakhi/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	It("prints the build information", func() {
		cmd := versioncmder.NewVersionCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: " + utils.Version))
		Expect(out.String()).To(ContainSubstring("Sha: " + utils.Sha))
	})

	It("prints JSON with --json", func() {
		cmd := versioncmder.NewVersionCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs([]string{"--json"})

		Expect(cmd.Execute()).To(Succeed())

		var info versioncmder.Info
		Expect(json.Unmarshal(out.Bytes(), &info)).To(Succeed())
		Expect(info.Version).To(Equal(utils.Version))
		Expect(info.GoVersion).NotTo(BeEmpty())
	})
})
