package protocol

// LanguageKind is the languageId sent in textDocument/didOpen.
type LanguageKind string

const (
	LangABAP            LanguageKind = "abap"
	LangWindowsBat      LanguageKind = "bat"
	LangBibTeX          LanguageKind = "bibtex"
	LangClojure         LanguageKind = "clojure"
	LangCoffeescript    LanguageKind = "coffeescript"
	LangC               LanguageKind = "c"
	LangCPP             LanguageKind = "cpp"
	LangCSharp          LanguageKind = "csharp"
	LangCSS             LanguageKind = "css"
	LangD               LanguageKind = "d"
	LangDelphi          LanguageKind = "pascal"
	LangDiff            LanguageKind = "diff"
	LangDart            LanguageKind = "dart"
	LangDockerfile      LanguageKind = "dockerfile"
	LangElixir          LanguageKind = "elixir"
	LangErlang          LanguageKind = "erlang"
	LangFSharp          LanguageKind = "fsharp"
	LangGitCommit       LanguageKind = "git-commit"
	LangGitRebase       LanguageKind = "git-rebase"
	LangGo              LanguageKind = "go"
	LangGroovy          LanguageKind = "groovy"
	LangHandlebars      LanguageKind = "handlebars"
	LangHaskell         LanguageKind = "haskell"
	LangHTML            LanguageKind = "html"
	LangIni             LanguageKind = "ini"
	LangJava            LanguageKind = "java"
	LangJavaScript      LanguageKind = "javascript"
	LangJavaScriptReact LanguageKind = "javascriptreact"
	LangJSON            LanguageKind = "json"
	LangLaTeX           LanguageKind = "latex"
	LangLess            LanguageKind = "less"
	LangLua             LanguageKind = "lua"
	LangMakefile        LanguageKind = "makefile"
	LangMarkdown        LanguageKind = "markdown"
	LangObjectiveC      LanguageKind = "objective-c"
	LangObjectiveCPP    LanguageKind = "objective-cpp"
	LangPerl            LanguageKind = "perl"
	LangPerl6           LanguageKind = "perl6"
	LangPHP             LanguageKind = "php"
	LangPowershell      LanguageKind = "powershell"
	LangPug             LanguageKind = "jade"
	LangPython          LanguageKind = "python"
	LangR               LanguageKind = "r"
	LangRazor           LanguageKind = "razor"
	LangRuby            LanguageKind = "ruby"
	LangRust            LanguageKind = "rust"
	LangSCSS            LanguageKind = "scss"
	LangSASS            LanguageKind = "sass"
	LangScala           LanguageKind = "scala"
	LangShaderLab       LanguageKind = "shaderlab"
	LangShellScript     LanguageKind = "shellscript"
	LangSQL             LanguageKind = "sql"
	LangSwift           LanguageKind = "swift"
	LangTypeScript      LanguageKind = "typescript"
	LangTypeScriptReact LanguageKind = "typescriptreact"
	LangXML             LanguageKind = "xml"
	LangXSL             LanguageKind = "xsl"
	LangYAML            LanguageKind = "yaml"
	LangPlainText       LanguageKind = "plaintext"
)

// Languages without an entry in the LSP 3.17 languageId table.
const (
	LangKotlin        LanguageKind = "kotlin"
	LangVue           LanguageKind = "vue"
	LangSvelte        LanguageKind = "svelte"
	LangAstro         LanguageKind = "astro"
	LangZig           LanguageKind = "zig"
	LangOCaml         LanguageKind = "ocaml"
	LangTerraform     LanguageKind = "terraform"
	LangTerraformVars LanguageKind = "terraform-vars"
	LangHCL           LanguageKind = "hcl"
	LangNix           LanguageKind = "nix"
	LangTypst         LanguageKind = "typst"
	LangGleam         LanguageKind = "gleam"
	LangERB           LanguageKind = "erb"
	LangPrisma        LanguageKind = "prisma"
)
