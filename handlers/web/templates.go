package web

import (
	"html/template"
)

// layoutData はすべてのページで共通のヘッダー情報です。
type layoutData struct {
	UserName  string
	SignedIn  bool
	LoginOK   bool
	CSRFToken string
}

type indexPageData struct {
	layoutData
}

type generatePageData struct {
	layoutData
	Phase       string
	Prompt      string
	ErrorDetail string
	Result      string
	Message     string
	HasResult   bool
	Preview     *previewData
	Used        int
	Quota       int
}

type previewData struct {
	Ready  bool
	Failed bool
	Detail string
	SrcDoc string
	Policy string
	Title  string
}

const layoutTmpl = `{{define "layout"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Website Generator</title>
    <style>
      :root { --bg:#f9fafb; --panel:#fff; --text:#111827; --muted:#6b7280; --border:#e5e7eb; --accent:#2563eb; --good:#16a34a; --bad:#b91c1c; }
      * { box-sizing: border-box; }
      body { margin:0; font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial; background:var(--bg); color:var(--text); }
      header { display:flex; justify-content:space-between; align-items:center; padding:16px; border-bottom:1px solid var(--border); background:var(--panel); }
      header h1 { font-size:20px; margin:0; }
      main { max-width:72rem; margin:0 auto; padding:24px; }
      .grid { display:grid; grid-template-columns:1fr 1fr; gap:32px; }
      @media (max-width: 960px) { .grid { grid-template-columns:1fr; } }
      .panel { background:var(--panel); border-radius:8px; box-shadow:0 1px 2px rgba(0,0,0,.06); padding:24px; }
      textarea { width:100%; height:8rem; padding:8px 12px; border:1px solid #d1d5db; border-radius:6px; resize:none; font:inherit; }
      .btn { display:inline-block; padding:8px 16px; border:0; border-radius:6px; color:#fff; background:var(--accent); cursor:pointer; font:inherit; text-decoration:none; }
      .btn[disabled] { opacity:.5; cursor:not-allowed; }
      .btn-success { background:var(--good); }
      .btn-secondary { background:#6b7280; }
      .btn-wide { width:100%; }
      .error { background:#fef2f2; border:1px solid #fecaca; color:var(--bad); border-radius:6px; padding:12px 16px; font-size:14px; }
      .preview { border:1px solid var(--border); border-radius:8px; overflow:hidden; }
      .preview-head { background:#f3f4f6; padding:8px 16px; border-bottom:1px solid var(--border); font-size:14px; }
      .preview-body { position:relative; }
      .preview iframe { width:100%; height:500px; border:0; display:block; background:#fff; }
      .overlay { position:absolute; inset:0; display:flex; align-items:center; justify-content:center; font-size:14px; }
      .overlay.loading { background:#f9fafb; color:var(--muted); }
      .overlay.failed { background:#fef2f2; color:var(--bad); }
      .placeholder { height:24rem; background:#f3f4f6; border-radius:6px; display:flex; align-items:center; justify-content:center; color:var(--muted); }
      .actions { display:flex; gap:8px; margin-top:16px; }
      .tips { margin-top:32px; background:#eff6ff; border:1px solid #bfdbfe; border-radius:8px; padding:24px; color:#1e40af; font-size:14px; }
      .muted { color:var(--muted); font-size:13px; }
      form.inline { display:inline; }
    </style>
  </head>
  <body>
    <header>
      <h1>Website Generator</h1>
      <div>
        {{if .SignedIn}}
          <span class="muted">{{.UserName}}</span>
          <form class="inline" method="post" action="/auth/logout">
            <input type="hidden" name="csrf_token" value="{{.CSRFToken}}" />
            <button type="submit" class="btn btn-secondary">Sign Out</button>
          </form>
        {{else if .LoginOK}}
          <a class="btn" href="/auth/login">Sign In</a>
          <a class="btn btn-success" href="/auth/login?signup=1">Sign Up</a>
        {{end}}
      </div>
    </header>
    {{template "content" .}}
  </body>
</html>{{end}}`

const indexTmpl = `{{define "content"}}
<main>
  <div class="panel">
    <h2>Describe a website, get the HTML.</h2>
    <p>Type what you want and a generative model writes a complete, responsive page you can preview and download.</p>
    {{if .SignedIn}}
      <a class="btn" href="/generate">Open the generator</a>
    {{else if .LoginOK}}
      <p class="muted">Sign in to start generating.</p>
    {{else}}
      <p class="muted">Sign-in is not configured on this server.</p>
    {{end}}
  </div>
</main>
{{end}}`

const generateTmpl = `{{define "content"}}
<main>
  <div style="margin-bottom:32px">
    <h2 style="margin:0 0 8px">Website Generator</h2>
    <p class="muted">Describe the website you want to create and we'll generate it for you.</p>
  </div>

  <div class="grid">
    <section class="panel">
      <h3>Describe Your Website</h3>
      <form id="generate-form" method="post" action="/generate">
        <input type="hidden" name="csrf_token" value="{{.CSRFToken}}" />
        <label for="prompt" class="muted">What kind of website do you want?</label>
        <textarea id="prompt" name="prompt" required
          placeholder="Describe your website... (e.g., 'A modern portfolio website for a photographer with a dark theme and image gallery', 'A business website for a restaurant with menu and contact information', 'A blog website with clean design')">{{.Prompt}}</textarea>
        <div style="margin-top:16px">
          <button id="submit" type="submit" class="btn btn-wide" {{if eq .Phase "submitting"}}disabled{{end}}>
            {{if eq .Phase "submitting"}}Generating...{{else}}Generate Website{{end}}
          </button>
        </div>
        {{if .Quota}}<p class="muted">{{.Used}} of {{.Quota}} generations used in the last 24 hours.</p>{{end}}
        {{if .ErrorDetail}}
          <div class="error" role="alert" style="margin-top:16px">{{.ErrorDetail}}</div>
        {{end}}
      </form>
    </section>

    <section class="panel">
      <h3>Live Preview</h3>
      {{if .HasResult}}
        <div class="preview">
          <div class="preview-head">Live Preview</div>
          <div class="preview-body">
            {{with .Preview}}
              {{if .Failed}}
                <div class="overlay failed">Failed to load preview: {{.Detail}}</div>
                <iframe title="Website Preview" sandbox="{{.Policy}}"></iframe>
              {{else}}
                <div id="preview-loading" class="overlay loading">Loading preview...</div>
                <iframe id="preview-frame" title="{{.Title}}" sandbox="{{.Policy}}" srcdoc="{{.SrcDoc}}"></iframe>
              {{end}}
            {{end}}
          </div>
        </div>
        <div class="actions">
          <button id="download" type="button" class="btn btn-success">Download HTML</button>
          <form class="inline" method="post" action="/generate/reset">
            <input type="hidden" name="csrf_token" value="{{.CSRFToken}}" />
            <button type="submit" class="btn btn-secondary">Generate New</button>
          </form>
        </div>
      {{else}}
        <div class="placeholder"><p>Your generated website will appear here</p></div>
      {{end}}
    </section>
  </div>

  <div class="tips">
    <h3 style="margin-top:0">Tips for Better Results</h3>
    <ul>
      <li>Mention the type of website (portfolio, blog, business, etc.)</li>
      <li>Specify the theme (dark, light, colorful, minimal)</li>
      <li>Include specific features you want (contact form, gallery, etc.)</li>
      <li>Describe the target audience or purpose</li>
    </ul>
  </div>
</main>
<script>
(function () {
  var form = document.getElementById("generate-form");
  var prompt = document.getElementById("prompt");
  var submit = document.getElementById("submit");
  function sync() { submit.disabled = prompt.value.trim() === ""; }
  prompt.addEventListener("input", sync);
  sync();
  form.addEventListener("submit", function (e) {
    if (prompt.value.trim() === "") { e.preventDefault(); return; }
    submit.disabled = true;
    submit.textContent = "Generating...";
  });

  var frame = document.getElementById("preview-frame");
  var loading = document.getElementById("preview-loading");
  if (frame && loading) {
    frame.addEventListener("load", function () { loading.remove(); });
  }

  var download = document.getElementById("download");
  var code = {{.Result}};
  if (download) {
    download.addEventListener("click", function () {
      var blob = new Blob([code], { type: "text/html" });
      var url = URL.createObjectURL(blob);
      var a = document.createElement("a");
      a.href = url;
      a.download = "generated-website.html";
      document.body.appendChild(a);
      a.click();
      document.body.removeChild(a);
      URL.revokeObjectURL(url);
    });
  }
})();
</script>
{{end}}`

var (
	indexPage    = template.Must(template.Must(template.New("index").Parse(layoutTmpl)).Parse(indexTmpl))
	generatePage = template.Must(template.Must(template.New("generate").Parse(layoutTmpl)).Parse(generateTmpl))
)
