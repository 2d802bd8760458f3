package main

import (
	"html/template"

	"github.com/WessleyAI/wessley-coverage/engine/coverage"
)

type pageData struct {
	GridID         string
	ContainerStyle template.CSS
	Layout         coverage.Layout
}

var pageTemplate = template.Must(template.New("grid").Parse(tmplGrid))

const tmplGrid = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Vehicle coverage</title>
<style>
body{margin:0;background:#0d1117;color:#c9d1d9;font-family:sans-serif}
.coverage-table{display:flex;flex-direction:column;overflow:auto}
.coverage-table-responsive{display:flex;padding:24px}
.coverage-table-models,.coverage-table-year-column{display:flex;flex-direction:column}
.coverage-table-model,.coverage-table-year{height:28px;line-height:28px;white-space:nowrap}
.coverage-table-model{padding-right:12px;text-align:right}
.coverage-table-year{text-align:center;font-weight:700}
.coverage-table-hspacing{width:6px}
.coverage-table-vspacing{height:6px}
.coverage-table-covered,.coverage-table-uncovered{width:44px;height:28px;border-radius:4px;cursor:pointer}
.coverage-table-covered{background:#3fb950}
.coverage-table-uncovered{background:#21262d;border:1px solid #30363d;box-sizing:border-box}
.coverage-table-status{min-height:1.5em;padding:0 24px;color:#f0883e}
</style>
</head>
<body>
{{- $rows := .Layout.Rows }}
<div class="coverage-table" id="coverage-table" style="{{.ContainerStyle}}">
  <div class="coverage-table-responsive">
    <div class="coverage-table-models">
      <div class="coverage-table-year"></div>
      {{- range $rows}}
      <div class="coverage-table-vspacing"></div>
      <div class="coverage-table-model">{{.Model}}</div>
      {{- end}}
    </div>
    {{- range $j, $year := .Layout.Years}}
    <div class="coverage-table-hspacing"></div>
    <div class="coverage-table-year-column">
      <div class="coverage-table-year">{{$year}}</div>
      {{- range $rows}}
      <div class="coverage-table-vspacing"></div>
      <div class="{{(index .Cells $j).State.Class}}" data-model="{{.Model}}" data-year="{{$year}}" onclick="toggleCell(this)"></div>
      {{- end}}
    </div>
    {{- end}}
    <div class="coverage-table-hspacing"></div>
  </div>
</div>
<div class="coverage-table-status" id="coverage-status" role="status"></div>
<script>
const gridURL = "/api/grids/" + {{.GridID}};
// The cell only changes once the grid has recorded the toggle (204).
function toggleCell(el) {
  if (el.dataset.pending) return;
  el.dataset.pending = "1";
  const covered = !el.classList.contains("coverage-table-covered");
  fetch(gridURL + "/coverage", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({model: el.dataset.model, year: Number(el.dataset.year), covered: covered}),
  }).then(function (res) {
    if (res.status === 204) {
      el.className = covered ? "coverage-table-covered" : "coverage-table-uncovered";
    } else if (res.status === 404) {
      alert("This grid has expired. The page will reload.");
      location.reload();
    } else if (res.status === 429) {
      status("Too many changes, try again in a moment.");
    } else {
      status("Change not saved.");
    }
  }).catch(function () {
    status("Change not saved.");
  }).finally(function () {
    delete el.dataset.pending;
  });
}
function status(msg) {
  const s = document.getElementById("coverage-status");
  s.textContent = msg;
  clearTimeout(s.timer);
  s.timer = setTimeout(function () { s.textContent = ""; }, 3000);
}
window.addEventListener("pagehide", function () {
  fetch(gridURL, {method: "DELETE", keepalive: true});
});
</script>
</body>
</html>
`
