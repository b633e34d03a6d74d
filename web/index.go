package web

import (
	"html/template"
	"net/http"
	"slices"

	"node.town/tandem/langs"
	"node.town/tandem/session"
)

var indexTemplate = template.Must(template.New("index").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Tandem</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100">
    <div class="container mx-auto px-4 py-8 space-y-6">
        <div class="flex items-center justify-between">
            <h1 class="text-3xl font-bold">Tandem</h1>
            <div class="space-x-2">
                <button class="px-3 py-1 rounded bg-green-600 text-white" onclick="post('/api/session/start')">Start</button>
                <button class="px-3 py-1 rounded bg-red-600 text-white" onclick="post('/api/session/stop')">Stop</button>
                <button class="px-3 py-1 rounded bg-gray-600 text-white" onclick="post('/api/session/flush')">Flush</button>
                <button class="px-3 py-1 rounded bg-blue-600 text-white" onclick="post('/api/calibrate')">Calibrate</button>
            </div>
        </div>
        <div class="grid grid-cols-2 gap-4">
            {{range .Stations}}{{$st := .}}
            <div id="station-{{.ID}}" class="bg-white shadow rounded-lg p-4 space-y-2">
                <button class="text-gray-600 text-sm underline" onclick="post('/api/station/{{.ID}}/activate')">Station {{.ID}}</button>
                <p class="text-lg" id="lang-{{.ID}}">{{.Lang}} ({{.Locale}})</p>
                <div class="flex space-x-2">
                    <select class="border rounded px-2" onchange="send('/api/station/{{.ID}}/lang', {lang: this.value}, true)">
                        {{range $.Languages}}<option value="{{.}}"{{if eq . $st.Lang}} selected{{end}}>{{.}}</option>{{end}}
                    </select>
                    <select class="border rounded px-2" onchange="send('/api/station/{{.ID}}/locale', {locale: this.value})">
                        {{range .Accents}}<option value="{{.}}"{{if eq . $st.Locale}} selected{{end}}>{{.}}</option>{{end}}
                    </select>
                </div>
            </div>
            {{end}}
        </div>
        <div class="grid grid-cols-2 gap-4 text-sm text-gray-600">
            <label>Voice speed
                <input type="range" min="0.5" max="2" step="0.1" value="{{.View.Settings.VoiceSpeed}}"
                    onchange="send('/api/settings', {voice_speed: parseFloat(this.value)})">
            </label>
            <label>Sensitivity
                <input type="range" min="10" max="800" step="10" value="{{.View.Settings.Sensitivity}}"
                    onchange="send('/api/settings', {sensitivity: parseFloat(this.value)})">
            </label>
        </div>
        <div class="bg-white shadow rounded-lg p-4">
            <p class="text-2xl" id="caption">{{.View.Caption}}</p>
            <p class="text-2xl text-blue-700" id="translation">{{.View.Translation}}</p>
        </div>
        <p class="text-sm text-gray-600" id="status"></p>
        <p class="text-sm text-red-600" id="error">{{.View.Error}}</p>
        <div class="space-y-2" id="history"></div>
    </div>
    <script>
        function post(path) { fetch(path, {method: 'POST'}); }
        function send(path, body, reload) {
            fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)})
                .then(() => { if (reload) location.reload(); });
        }
        function text(el, value) { document.getElementById(el).textContent = value || ''; }
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
        ws.onmessage = (event) => {
            const v = JSON.parse(event.data);
            text('caption', v.caption);
            text('translation', v.translation);
            text('error', v.error);
            text('status', (v.running ? 'Running' : 'Stopped') + ' · ' +
                Object.entries(v.status || {}).map(([k, s]) => k + ': ' + s).join(' · '));
            for (const id of ['A', 'B']) {
                const st = id === 'A' ? v.settings.station_a : v.settings.station_b;
                text('lang-' + id, st.lang + ' (' + st.locale + ')');
                document.getElementById('station-' + id).classList.toggle('ring-4', v.settings.active_station === id);
            }
            const history = document.getElementById('history');
            history.replaceChildren(...(v.history || []).map((e) => {
                const div = document.createElement('div');
                div.className = 'bg-white shadow rounded-lg p-4';
                const when = document.createElement('p');
                when.className = 'text-gray-600 text-sm';
                when.textContent = new Date(e.timestamp).toLocaleTimeString() + ' · ' + e.speaker + ' · ' + e.source_lang + ' → ' + e.target_lang;
                const orig = document.createElement('p');
                orig.textContent = e.original;
                const tr = document.createElement('p');
                tr.className = 'text-blue-700';
                tr.textContent = e.translated;
                div.append(when, orig, tr);
                return div;
            }));
        };
    </script>
</body>
</html>
`))

type stationView struct {
	ID      string
	Lang    string
	Locale  string
	Accents []string
}

func newStationView(id string, v session.Voice) stationView {
	accents := langs.Accents[v.Lang]
	if len(accents) == 0 {
		accents = []string{v.Locale}
	}
	return stationView{ID: id, Lang: v.Lang, Locale: v.Locale, Accents: accents}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	view := s.state.Snapshot()
	data := struct {
		View      session.View
		Stations  []stationView
		Languages []string
	}{
		View: view,
		Stations: []stationView{
			newStationView("A", view.Settings.StationA),
			newStationView("B", view.Settings.StationB),
		},
		Languages: languages(view.Settings),
	}

	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to execute template", "error", err.Error())
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// languages offers every language with known accents, plus whatever the
// stations already use.
func languages(settings session.Settings) []string {
	out := langs.Codes()
	for _, v := range []session.Voice{settings.StationA, settings.StationB} {
		if !slices.Contains(out, v.Lang) {
			out = append(out, v.Lang)
		}
	}
	return out
}
