package initcmder_test

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/tabulahq/tabula/cmd/tabula/init"
	"github.com/tabulahq/tabula/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "tabula-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("creates a .tabula directory in the current directory", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".tabula"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.LLM.Endpoint).To(Equal("https://api.openai.com/v1"))
		Expect(cfg.LLM.Model).To(Equal("gpt-4o-mini"))
	})

	It("succeeds when .tabula directory already exists", func() {
		err := os.MkdirAll(filepath.Join(tmpDir, ".tabula"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".tabula"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("does not overwrite an existing config.toml without a preset", func() {
		tabulaDir := filepath.Join(tmpDir, ".tabula")
		err := os.MkdirAll(tabulaDir, 0o755)
		Expect(err).NotTo(HaveOccurred())

		existing := "version = 0\n\n[llm]\nmodel = \"my-custom-model\"\n"
		err = os.WriteFile(filepath.Join(tabulaDir, "config.toml"), []byte(existing), 0o600)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		cfg := loadConfig(tmpDir)
		Expect(cfg.LLM.Model).To(Equal("my-custom-model"))
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with the deepseek preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "deepseek"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Version).To(Equal(config.CurrentV))
			Expect(cfg.LLM.Endpoint).To(Equal("https://api.deepseek.com/v1"))
			Expect(cfg.LLM.Model).To(Equal("deepseek-chat"))
		})

		It("creates config.toml with the ollama preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "ollama"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.LLM.Endpoint).To(Equal("http://localhost:11434/v1"))
		})

		It("overwrites existing config.toml when re-running with a different preset", func() {
			cmd1 := initcmder.NewInitCmd()
			cmd1.SetArgs([]string{"--preset", "openai"})
			Expect(cmd1.Execute()).To(Succeed())

			cmd2 := initcmder.NewInitCmd()
			cmd2.SetArgs([]string{"--preset", "deepseek"})
			Expect(cmd2.Execute()).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.LLM.Model).To(Equal("deepseek-chat"))
		})

		It("rejects unknown preset names", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "invalid-provider"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})
	})
})

// loadConfig is a test helper that reads and parses the config.toml from the
// .tabula directory within the given base directory.
func loadConfig(baseDir string) *config.Config {
	configPath := filepath.Join(baseDir, ".tabula", "config.toml")
	data, err := os.ReadFile(configPath)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
