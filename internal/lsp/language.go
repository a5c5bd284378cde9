package lsp

import (
	"path"
	"slices"
	"strings"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
)

var extensionLanguages = map[string]protocol.LanguageKind{
	".abap": protocol.LangABAP,
	".bat":  protocol.LangWindowsBat,
	".bib":  protocol.LangBibTeX, ".bibtex": protocol.LangBibTeX,
	".clj": protocol.LangClojure, ".cljs": protocol.LangClojure, ".cljc": protocol.LangClojure, ".edn": protocol.LangClojure,
	".coffee": protocol.LangCoffeescript,
	".c":      protocol.LangC,
	".cpp":    protocol.LangCPP, ".cxx": protocol.LangCPP, ".cc": protocol.LangCPP, ".c++": protocol.LangCPP,
	".cs":  protocol.LangCSharp,
	".css": protocol.LangCSS,
	".d":   protocol.LangD,
	".pas": protocol.LangDelphi, ".pascal": protocol.LangDelphi,
	".diff": protocol.LangDiff, ".patch": protocol.LangDiff,
	".dart":       protocol.LangDart,
	".dockerfile": protocol.LangDockerfile,
	".ex":         protocol.LangElixir, ".exs": protocol.LangElixir,
	".erl": protocol.LangErlang, ".hrl": protocol.LangErlang,
	".fs": protocol.LangFSharp, ".fsi": protocol.LangFSharp, ".fsx": protocol.LangFSharp, ".fsscript": protocol.LangFSharp,
	".gitcommit": protocol.LangGitCommit,
	".gitrebase": protocol.LangGitRebase,
	".go":        protocol.LangGo,
	".groovy":    protocol.LangGroovy,
	".gleam":     protocol.LangGleam,
	".hbs":       protocol.LangHandlebars, ".handlebars": protocol.LangHandlebars,
	".hs": protocol.LangHaskell, ".lhs": protocol.LangHaskell,
	".html": protocol.LangHTML, ".htm": protocol.LangHTML,
	".ini":  protocol.LangIni,
	".java": protocol.LangJava,
	".js":   protocol.LangJavaScript, ".mjs": protocol.LangJavaScript, ".cjs": protocol.LangJavaScript,
	".jsx":  protocol.LangJavaScriptReact,
	".json": protocol.LangJSON,
	".kt":   protocol.LangKotlin, ".kts": protocol.LangKotlin,
	".tex": protocol.LangLaTeX, ".latex": protocol.LangLaTeX,
	".less":     protocol.LangLess,
	".lua":      protocol.LangLua,
	".makefile": protocol.LangMakefile,
	".md":       protocol.LangMarkdown, ".markdown": protocol.LangMarkdown,
	".m":  protocol.LangObjectiveC,
	".mm": protocol.LangObjectiveCPP,
	".ml": protocol.LangOCaml, ".mli": protocol.LangOCaml,
	".pl": protocol.LangPerl,
	".pm": protocol.LangPerl6, ".pm6": protocol.LangPerl6,
	".php": protocol.LangPHP,
	".ps1": protocol.LangPowershell, ".psm1": protocol.LangPowershell,
	".prisma": protocol.LangPrisma,
	".pug":    protocol.LangPug, ".jade": protocol.LangPug,
	".py":     protocol.LangPython,
	".r":      protocol.LangR,
	".cshtml": protocol.LangRazor, ".razor": protocol.LangRazor,
	".rb": protocol.LangRuby, ".rake": protocol.LangRuby, ".gemspec": protocol.LangRuby, ".ru": protocol.LangRuby,
	".erb":    protocol.LangERB,
	".rs":     protocol.LangRust,
	".scss":   protocol.LangSCSS,
	".sass":   protocol.LangSASS,
	".scala":  protocol.LangScala,
	".shader": protocol.LangShaderLab,
	".sh":     protocol.LangShellScript, ".bash": protocol.LangShellScript, ".zsh": protocol.LangShellScript, ".ksh": protocol.LangShellScript,
	".sql":    protocol.LangSQL,
	".svelte": protocol.LangSvelte,
	".swift":  protocol.LangSwift,
	".ts":     protocol.LangTypeScript, ".mts": protocol.LangTypeScript, ".cts": protocol.LangTypeScript,
	".tsx":    protocol.LangTypeScriptReact,
	".tf":     protocol.LangTerraform,
	".tfvars": protocol.LangTerraformVars,
	".hcl":    protocol.LangHCL,
	".typ":    protocol.LangTypst, ".typc": protocol.LangTypst,
	".xml":  protocol.LangXML,
	".xsl":  protocol.LangXSL,
	".yaml": protocol.LangYAML, ".yml": protocol.LangYAML,
	".vue": protocol.LangVue,
	".zig": protocol.LangZig, ".zon": protocol.LangZig,
	".astro": protocol.LangAstro,
	".nix":   protocol.LangNix,
	".txt":   protocol.LangPlainText,
}

var filenameLanguages = map[string]protocol.LanguageKind{
	"dockerfile":      protocol.LangDockerfile,
	"makefile":        protocol.LangMakefile,
	"gnumakefile":     protocol.LangMakefile,
	"commit_editmsg":  protocol.LangGitCommit,
	"git-rebase-todo": protocol.LangGitRebase,
}

// DetectLanguageID infers a languageId from a document URI or path. Unknown
// extensions map to plaintext so that every open document has a language.
func DetectLanguageID(uri string) protocol.LanguageKind {
	name := strings.ToLower(path.Base(strings.TrimPrefix(uri, "file://")))
	if lang, ok := filenameLanguages[name]; ok {
		return lang
	}
	if lang, ok := extensionLanguages[path.Ext(name)]; ok {
		return lang
	}
	return protocol.LangPlainText
}

// LanguagesOf returns the sorted, de-duplicated languages of docs.
func LanguagesOf(docs []TextDocument) []string {
	langs := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Language == "" || slices.Contains(langs, doc.Language) {
			continue
		}
		langs = append(langs, doc.Language)
	}
	slices.Sort(langs)
	return langs
}
