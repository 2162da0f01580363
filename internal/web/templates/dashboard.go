// Package templates holds the server-rendered HTML components.
package templates

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strconv"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/a-h/templ"
)

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Username string // empty when signed out
	Token    string
	History  []core.DatasetRecord
	Capacity int
	Error    *core.UserMessage
}

// Dashboard renders the single-page UI: sign-in when Username is empty,
// otherwise the upload form and the user's recent datasets.
func Dashboard(d DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(w)
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>Equipment Visualizer</title><style>` + styles + `</style></head><body><main>`)
		p.raw(`<h1>Equipment Parameter Visualizer</h1>`)

		if d.Error != nil {
			p.component(ctx, ErrorAlert(d.Error.Message, d.Error.Action, d.Error.Code))
		}

		if d.Username == "" {
			p.raw(signInForm)
		} else {
			p.raw(`<p class="muted">Signed in as <strong>`)
			p.text(d.Username)
			p.raw(`</strong></p>`)
			p.raw(`<section><h2>Upload CSV</h2>`)
			p.raw(`<form id="upload" data-token="`)
			p.text(d.Token)
			p.raw(`"><input type="file" name="file" accept=".csv" required> <button type="submit">Upload</button></form>`)
			p.raw(`<div id="upload-result"></div></section>`)

			p.raw(`<section><h2>Recent datasets</h2><p class="muted">The last `)
			p.text(strconv.Itoa(d.Capacity))
			p.raw(` uploads are kept; older ones are removed automatically.</p>`)
			if len(d.History) == 0 {
				p.raw(`<p>No datasets yet.</p>`)
			}
			for _, rec := range d.History {
				datasetCard(ctx, p, rec, d.Token)
			}
			p.raw(`</section>`)
			p.raw(uploadScript)
		}

		p.raw(`</main></body></html>`)
		return p.err
	})
}

func datasetCard(ctx context.Context, p *printer, rec core.DatasetRecord, token string) {
	q := "?token=" + url.QueryEscape(token)
	id := url.PathEscape(rec.ID)

	p.raw(`<article class="card"><header><strong>`)
	p.text(rec.Name)
	p.raw(`</strong> <span class="muted">`)
	p.text(rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	p.raw(`</span></header>`)

	p.raw(`<p>Total equipment: <strong>`)
	p.text(strconv.Itoa(rec.Summary.TotalCount))
	p.raw(`</strong></p>`)

	p.raw(`<table><thead><tr><th>Parameter</th><th>Avg</th><th>Min</th><th>Max</th><th>Std</th></tr></thead><tbody>`)
	for _, m := range core.Measurements {
		st, ok := rec.Summary.Statistics[m.Key]
		if !ok {
			continue
		}
		p.raw(`<tr><td>`)
		p.text(m.Column)
		for _, v := range []float64{st.Avg, st.Min, st.Max, st.Std} {
			p.raw(`</td><td class="num">`)
			p.text(strconv.FormatFloat(v, 'f', 2, 64))
		}
		p.raw(`</td></tr>`)
	}
	p.raw(`</tbody></table>`)

	p.raw(`<ul class="types">`)
	for _, name := range sortedTypes(rec.Summary.TypeDistribution) {
		p.raw(`<li>`)
		p.text(name)
		p.raw(`: `)
		p.text(strconv.Itoa(rec.Summary.TypeDistribution[name]))
		p.raw(`</li>`)
	}
	p.raw(`</ul>`)

	p.raw(`<p><a href="/api/report/` + id + q + `">PDF report</a> · <a href="/api/datasets/` + id + `/csv` + q + `">CSV</a></p>`)
	p.raw(`</article>`)
}

func sortedTypes(dist map[string]int) []string {
	names := make([]string, 0, len(dist))
	for name := range dist {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if dist[names[i]] != dist[names[j]] {
			return dist[names[i]] > dist[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

const styles = `body{font-family:system-ui,sans-serif;background:#f8fafc;color:#0f172a;margin:0}
main{max-width:960px;margin:0 auto;padding:2rem}
.card{background:#fff;border:1px solid #e2e8f0;border-radius:8px;padding:1rem;margin:1rem 0}
.muted{color:#64748b}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #e2e8f0;padding:.3rem .5rem;text-align:left}
td.num{text-align:right;font-variant-numeric:tabular-nums}
.types{display:flex;gap:1rem;list-style:none;padding:0;flex-wrap:wrap}
.alert-error{background:#fef2f2;border:1px solid #fecaca;border-radius:6px;padding:.75rem;margin:1rem 0}
form input{margin:.25rem}`

const signInForm = `<section class="card"><h2>Sign in</h2>
<form id="auth"><input name="username" placeholder="Username" required>
<input name="password" type="password" placeholder="Password" required>
<button type="submit" data-path="/api/login">Log in</button>
<button type="submit" data-path="/api/register">Register</button></form>
<div id="auth-result"></div></section>
<script>
document.getElementById('auth').addEventListener('submit', async (e) => {
  e.preventDefault();
  const f = e.target;
  const path = e.submitter ? e.submitter.dataset.path : '/api/login';
  const res = await fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({username: f.username.value, password: f.password.value})});
  const body = await res.json();
  if (res.ok) { location.href = '/?token=' + encodeURIComponent(body.token); return; }
  document.getElementById('auth-result').textContent = body.message || body.error;
});
</script>`

const uploadScript = `<script>
document.getElementById('upload').addEventListener('submit', async (e) => {
  e.preventDefault();
  const f = e.target;
  const res = await fetch('/api/upload', {method: 'POST',
    headers: {'Authorization': 'Token ' + f.dataset.token}, body: new FormData(f)});
  const body = await res.json();
  if (res.ok) { location.reload(); return; }
  let msg = body.message || body.error;
  if (body.columns && body.columns.length) msg += ': ' + body.columns.join(', ');
  document.getElementById('upload-result').textContent = msg;
});
</script>`
