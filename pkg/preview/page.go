package preview

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{- if .Error}}
<pre id="vtemplate-error">{{.Error}}</pre>
{{- end}}
<div id="vtemplate-root">{{.Body}}</div>
<script>
(function() {
    'use strict';

    var root = document.getElementById('vtemplate-root');

    function resolve(path) {
        var node = root;
        for (var i = 0; i < path.length && node; i++) {
            node = node.childNodes[path[i]];
        }
        return node;
    }

    function pathOf(node) {
        var path = [];
        while (node && node !== root) {
            path.unshift(Array.prototype.indexOf.call(node.parentNode.childNodes, node));
            node = node.parentNode;
        }
        return node === root ? path : null;
    }

    function apply(p) {
        var node = resolve(p.path || []);
        if (!node) {
            return;
        }
        switch (p.op) {
            case 'SetText':
                node.textContent = p.value || '';
                break;
            case 'SetAttr':
                node.setAttribute(p.key, p.value || '');
                break;
            case 'RemoveAttr':
                node.removeAttribute(p.key);
                break;
            case 'InsertNode':
                var tpl = document.createElement('template');
                if (p.text) {
                    tpl.content.appendChild(document.createTextNode(p.value || ''));
                } else {
                    tpl.innerHTML = p.html;
                }
                node.insertBefore(tpl.content.firstChild, node.childNodes[p.index || 0] || null);
                break;
            case 'RemoveNode':
                node.parentNode.removeChild(node);
                break;
        }
    }

    ['click', 'input', 'change', 'focusin', 'focusout'].forEach(function(type) {
        root.addEventListener(type, function(e) {
            var path = pathOf(e.target);
            if (!path) {
                return;
            }
            fetch('/events', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({path: path, type: type, detail: e.target.value})
            });
        });
    });

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + {{.WebSocketPath}});
        ws.onmessage = function(e) {
            var msg = JSON.parse(e.data);
            switch (msg.type) {
                case 'patches':
                    (msg.patches || []).forEach(apply);
                    break;
                case 'reload':
                case 'error':
                    location.reload();
                    break;
            }
        };
        ws.onclose = function() {
            setTimeout(connect, 1000);
        };
    }
    connect();
})();
</script>
</body>
</html>
`))

type pageData struct {
	Title         string
	Body          template.HTML
	WebSocketPath string
	Error         string
}

func renderPage(w io.Writer, title, body, wsPath string, loadErr error) error {
	data := pageData{
		Title:         title,
		Body:          template.HTML(body),
		WebSocketPath: wsPath,
	}
	if loadErr != nil {
		data.Error = loadErr.Error()
	}
	return pageTemplate.Execute(w, data)
}
